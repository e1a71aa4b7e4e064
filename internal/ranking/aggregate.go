package ranking

import (
	"context"
	"time"

	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/shopspring/decimal"
)

// Window restricts aggregation to submissions dated strictly before Before.
// The zero Window counts everything.
type Window struct {
	Before time.Time
}

func (w Window) Open() bool {
	return w.Before.IsZero()
}

// BestRow is one grouped (participation, contest problem) row. Points and Last
// are MAX(points) and MAX(date) taken independently over the pair's
// submissions; either is nil when the pair has no submissions.
type BestRow struct {
	ParticipationID  uint
	ContestProblemID uint
	ProblemCode      string
	Points           *float64
	Last             *time.Time
}

type Store interface {
	// ContestProblems returns the contest's problems in contest order.
	ContestProblems(ctx context.Context, contestID uint) ([]models.ContestProblem, error)
	// RankedParticipations returns live, non-spectating participations with
	// profile, organizations and rating loaded, ordered by score desc,
	// cumtime asc, id asc.
	RankedParticipations(ctx context.Context, contestID uint) ([]models.Participation, error)
	// ContestBest groups submissions of live, non-spectating participations.
	ContestBest(ctx context.Context, contestID uint, w Window) ([]BestRow, error)
	// ParticipationBest groups submissions of exactly one participation.
	ParticipationBest(ctx context.Context, participationID uint, w Window) ([]BestRow, error)
}

type CellKey struct {
	ParticipationID uint
	ProblemID       uint
}

type Cell struct {
	Code   string
	Points decimal.Decimal
	Last   time.Time
}

// Matrix is the sparse best-score table. A missing key means not attempted.
type Matrix map[CellKey]Cell

func (m Matrix) Lookup(participationID, problemID uint) (Cell, bool) {
	c, ok := m[CellKey{ParticipationID: participationID, ProblemID: problemID}]
	return c, ok
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate builds the matrix for the main leaderboard in one store round trip.
// Rows outside problems or participations are ignored.
func (a *Aggregator) Aggregate(ctx context.Context, c *models.Contest, problems []models.ContestProblem, participations []models.Participation, w Window) (Matrix, error) {
	rows, err := a.store.ContestBest(ctx, c.ID, w)
	if err != nil {
		return nil, err
	}
	parts := make(map[uint]struct{}, len(participations))
	for _, p := range participations {
		parts[p.ID] = struct{}{}
	}
	return fill(rows, problemSet(problems), parts), nil
}

// AggregateOne builds the matrix for a single participation of any kind,
// without touching the main leaderboard scan.
func (a *Aggregator) AggregateOne(ctx context.Context, c *models.Contest, p *models.Participation, problems []models.ContestProblem, w Window) (Matrix, error) {
	rows, err := a.store.ParticipationBest(ctx, p.ID, w)
	if err != nil {
		return nil, err
	}
	return fill(rows, problemSet(problems), map[uint]struct{}{p.ID: {}}), nil
}

func problemSet(problems []models.ContestProblem) map[uint]struct{} {
	set := make(map[uint]struct{}, len(problems))
	for _, p := range problems {
		set[p.ID] = struct{}{}
	}
	return set
}

func fill(rows []BestRow, problems, parts map[uint]struct{}) Matrix {
	m := make(Matrix, len(rows))
	for _, r := range rows {
		if r.Points == nil || r.Last == nil {
			continue
		}
		if _, ok := parts[r.ParticipationID]; !ok {
			continue
		}
		if _, ok := problems[r.ContestProblemID]; !ok {
			continue
		}
		m[CellKey{ParticipationID: r.ParticipationID, ProblemID: r.ContestProblemID}] = Cell{
			Code:   r.ProblemCode,
			Points: decimal.NewFromFloat(*r.Points),
			Last:   *r.Last,
		}
	}
	return m
}
