package ranking

import (
	"strconv"
	"time"

	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateFailed  State = "failed-score"
	StatePartial State = "partial-score"
	StateFull    State = "full-score"
)

func stateOf(points, total decimal.Decimal) State {
	switch {
	case points.IsZero():
		return StateFailed
	case points.Equal(total):
		return StateFull
	default:
		return StatePartial
	}
}

// BestSolution is one ranking cell. Time is measured from the
// participation's own start.
type BestSolution struct {
	Code   string          `json:"code"`
	Points decimal.Decimal `json:"points"`
	Time   time.Duration   `json:"time"`
	State  State           `json:"state"`
}

type Profile struct {
	ParticipationID uint            `json:"participation_id"`
	ProfileID       uint            `json:"profile_id"`
	Username        string          `json:"username"`
	DisplayRank     string          `json:"display_rank"`
	LongDisplayName string          `json:"long_display_name"`
	Organization    string          `json:"organization,omitempty"`
	Points          decimal.Decimal `json:"points"`
	Cumtime         int64           `json:"cumtime"`
	Rating          *int            `json:"rating,omitempty"`
	// Problems is aligned with Ranking.Problems; nil entries are unattempted.
	Problems []*BestSolution `json:"problems"`
}

// OwnRankLabel marks a viewer's own virtual row, which takes no rank.
const OwnRankLabel = "-"

type Standing struct {
	Rank    int     `json:"rank"`
	Own     bool    `json:"own,omitempty"`
	Profile Profile `json:"profile"`
}

func (s Standing) Label() string {
	if s.Own {
		return OwnRankLabel
	}
	return strconv.Itoa(s.Rank)
}

type Ranking struct {
	Standings []Standing              `json:"standings"`
	Problems  []models.ContestProblem `json:"problems"`
}

func makeProfile(c *models.Contest, p *models.Participation, problems []models.ContestProblem, m Matrix) Profile {
	prof := Profile{
		ParticipationID: p.ID,
		ProfileID:       p.ProfileID,
		Username:        p.Profile.Username,
		DisplayRank:     p.Profile.DisplayRank,
		LongDisplayName: p.Profile.LongDisplayName(),
		Points:          decimal.NewFromFloat(p.Score),
		Cumtime:         p.Cumtime,
		Problems:        make([]*BestSolution, len(problems)),
	}
	if org := p.Profile.Organization(); org != nil {
		prof.Organization = org.ShortName
	}
	if p.Rating != nil {
		r := p.Rating.Rating
		prof.Rating = &r
	}

	start := p.Start(c)
	for i, cp := range problems {
		cell, ok := m.Lookup(p.ID, cp.ID)
		if !ok {
			continue
		}
		prof.Problems[i] = &BestSolution{
			Code:   cell.Code,
			Points: cell.Points,
			Time:   cell.Last.Sub(start),
			State:  stateOf(cell.Points, decimal.NewFromFloat(cp.Points)),
		}
	}
	return prof
}

// retotal recomputes points and cumtime from the cells, for windowed rankings
// where the stored totals include later submissions.
func (p *Profile) retotal() {
	points := decimal.Zero
	var cumtime time.Duration
	for _, s := range p.Problems {
		if s == nil {
			continue
		}
		points = points.Add(s.Points)
		if s.Points.IsPositive() {
			cumtime += s.Time
		}
	}
	p.Points = points
	p.Cumtime = int64(cumtime / time.Second)
}
