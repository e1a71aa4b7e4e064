package user

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ZJUSCT/CSRank/internal/api"
	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/ZJUSCT/CSRank/internal/util"
	"github.com/gin-gonic/gin"
)

type standingView struct {
	Rank    string          `json:"rank"`
	Own     bool            `json:"own,omitempty"`
	Profile ranking.Profile `json:"profile"`
}

func (h *Handler) listContests(c *gin.Context) {
	contests, err := h.gate.Visible(c.Request.Context(), api.ViewerFrom(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, contests, "Contests loaded")
}

func (h *Handler) getCalendar(c *gin.Context) {
	year, yerr := strconv.Atoi(c.Param("year"))
	month, merr := strconv.Atoi(c.Param("month"))
	if yerr != nil || merr != nil {
		api.Fail(c, contest.NotFound(""))
		return
	}

	cal, err := h.gate.Calendar(c.Request.Context(), api.ViewerFrom(c), year, time.Month(month), h.now())
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, cal, "Calendar loaded")
}

func (h *Handler) getContest(c *gin.Context) {
	ct, err := h.gate.Resolve(c.Request.Context(), c.Param("key"), api.ViewerFrom(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, ct, "Contest found")
}

func (h *Handler) getRanking(c *gin.Context) {
	ctx := c.Request.Context()
	v := api.ViewerFrom(c)

	var opts ranking.Options
	if at := c.Query("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			util.Error(c, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
			return
		}
		opts.At = t
	}

	ct, err := h.gate.Find(ctx, c.Param("key"), v)
	if err != nil {
		api.Fail(c, err)
		return
	}
	if err := contest.CheckRankingVisible(ct, v, h.now()); err != nil {
		api.Fail(c, err)
		return
	}

	r, err := h.ranks.Build(ctx, ct, v, opts)
	if err != nil {
		api.Fail(c, err)
		return
	}

	standings := make([]standingView, 0, len(r.Standings))
	for _, s := range r.Standings {
		standings = append(standings, standingView{Rank: s.Label(), Own: s.Own, Profile: s.Profile})
	}
	util.Success(c, gin.H{
		"contest":   ct,
		"problems":  r.Problems,
		"standings": standings,
	}, "Ranking retrieved")
}

func (h *Handler) joinContest(c *gin.Context) {
	ctx := c.Request.Context()
	v := api.ViewerFrom(c)

	ct, err := h.gate.Resolve(ctx, c.Param("key"), v)
	if err != nil {
		api.Fail(c, err)
		return
	}
	p, err := h.manager.Join(ctx, ct, v)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, p, "Joined contest")
}

func (h *Handler) leaveContest(c *gin.Context) {
	ctx := c.Request.Context()
	v := api.ViewerFrom(c)

	ct, err := h.gate.Resolve(ctx, c.Param("key"), v)
	if err != nil {
		api.Fail(c, err)
		return
	}
	if err := h.manager.Leave(ctx, ct, v); err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, nil, "Left contest")
}
