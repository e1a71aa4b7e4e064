package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ZJUSCT/CSRank/internal/api"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/ZJUSCT/CSRank/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getRanking(c *gin.Context) {
	ctx := c.Request.Context()

	var opts ranking.Options
	if at := c.Query("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			util.Error(c, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
			return
		}
		opts.At = t
	}

	ct, err := h.gate.Find(ctx, c.Param("key"), h.viewer)
	if err != nil {
		api.Fail(c, err)
		return
	}
	r, err := h.ranks.Build(ctx, ct, h.viewer, opts)
	if err != nil {
		api.Fail(c, err)
		return
	}
	util.Success(c, r, "Ranking retrieved")
}

func (h *Handler) recalculateContest(c *gin.Context) {
	ctx := c.Request.Context()

	ct, err := h.gate.Find(ctx, c.Param("key"), h.viewer)
	if err != nil {
		api.Fail(c, err)
		return
	}
	n, err := h.store.RecalculateContest(ctx, ct.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, fmt.Errorf("failed to recalculate scores: %w", err))
		return
	}
	h.invalidate(c, ct.ID)

	zap.S().Infof("admin triggered score recalculation for contest %s", ct.Key)
	util.Success(c, gin.H{"participations": n}, "Score recalculation finished")
}

func (h *Handler) recalculateParticipation(c *gin.Context) {
	p, ok := h.participation(c)
	if !ok {
		return
	}
	if err := h.store.Recalculate(c.Request.Context(), p.ID); err != nil {
		util.Error(c, http.StatusInternalServerError, fmt.Errorf("failed to recalculate scores: %w", err))
		return
	}
	h.invalidate(c, p.ContestID)
	util.Success(c, nil, "Score recalculation finished")
}

// recordSubmission accepts a judged submission from the judge.
func (h *Handler) recordSubmission(c *gin.Context) {
	var req struct {
		ContestProblemID uint      `json:"contest_problem_id" binding:"required"`
		SubmissionID     string    `json:"submission_id"`
		Points           float64   `json:"points"`
		Result           string    `json:"result"`
		Date             time.Time `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if req.Points < 0 {
		util.Error(c, http.StatusBadRequest, "points must not be negative")
		return
	}

	p, ok := h.participation(c)
	if !ok {
		return
	}
	sub := &models.Submission{ID: req.SubmissionID, Date: req.Date, Points: req.Points, Result: req.Result}
	err := h.store.RecordSubmission(c.Request.Context(), p.ID, req.ContestProblemID, sub)
	if errors.Is(err, database.ErrProblemNotInContest) {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		api.Fail(c, err)
		return
	}
	h.invalidate(c, p.ContestID)
	util.Success(c, sub, "Submission recorded")
}

func (h *Handler) participation(c *gin.Context) (*models.Participation, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.Error(c, http.StatusBadRequest, "invalid participation id")
		return nil, false
	}
	p, err := h.store.ParticipationByID(c.Request.Context(), uint(id))
	if err != nil {
		api.Fail(c, err)
		return nil, false
	}
	return p, true
}

func (h *Handler) invalidate(c *gin.Context, contestID uint) {
	if h.forget != nil {
		h.forget.Forget(c.Request.Context(), contestID)
	}
}
