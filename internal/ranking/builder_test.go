package ranking

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	participationID  uint
	contestProblemID uint
	points           float64
	date             time.Time
}

// memStore answers the ranking queries from slices, grouping the way the SQL
// store does: MAX(points) and MAX(date) per (participation, problem).
type memStore struct {
	contest  *models.Contest
	problems []models.ContestProblem
	parts    []models.Participation
	subs     []fakeSub
	err      error

	contestBestCalls int
}

func (s *memStore) ContestProblems(_ context.Context, contestID uint) ([]models.ContestProblem, error) {
	out := slices.Clone(s.problems)
	slices.SortFunc(out, func(a, b models.ContestProblem) int { return cmp.Compare(a.Order, b.Order) })
	return out, s.err
}

func (s *memStore) RankedParticipations(_ context.Context, contestID uint) ([]models.Participation, error) {
	var out []models.Participation
	for _, p := range s.parts {
		if p.ContestID == contestID && p.Live() && !p.Spectate {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Participation) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Cumtime, b.Cumtime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *memStore) group(keep func(models.Participation) bool, w Window) []BestRow {
	codes := make(map[uint]string)
	for _, p := range s.problems {
		codes[p.ID] = p.Problem.Code
	}
	byID := make(map[uint]models.Participation)
	for _, p := range s.parts {
		byID[p.ID] = p
	}
	rows := make(map[CellKey]*BestRow)
	var order []CellKey
	for _, sub := range s.subs {
		p, ok := byID[sub.participationID]
		if !ok || !keep(p) {
			continue
		}
		if !w.Open() && !sub.date.Before(w.Before) {
			continue
		}
		key := CellKey{ParticipationID: sub.participationID, ProblemID: sub.contestProblemID}
		row, ok := rows[key]
		if !ok {
			points, date := sub.points, sub.date
			rows[key] = &BestRow{
				ParticipationID:  sub.participationID,
				ContestProblemID: sub.contestProblemID,
				ProblemCode:      codes[sub.contestProblemID],
				Points:           &points,
				Last:             &date,
			}
			order = append(order, key)
			continue
		}
		if sub.points > *row.Points {
			*row.Points = sub.points
		}
		if sub.date.After(*row.Last) {
			*row.Last = sub.date
		}
	}
	out := make([]BestRow, 0, len(order))
	for _, k := range order {
		out = append(out, *rows[k])
	}
	return out
}

func (s *memStore) ContestBest(_ context.Context, contestID uint, w Window) ([]BestRow, error) {
	s.contestBestCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.group(func(p models.Participation) bool {
		return p.ContestID == contestID && p.Live() && !p.Spectate
	}, w), nil
}

func (s *memStore) ParticipationBest(_ context.Context, participationID uint, w Window) ([]BestRow, error) {
	return s.group(func(p models.Participation) bool { return p.ID == participationID }, w), nil
}

type mapCache struct {
	entries map[uint]*Ranking
	loads   int
}

func (c *mapCache) Load(_ context.Context, id uint) (*Ranking, bool) {
	c.loads++
	r, ok := c.entries[id]
	return r, ok
}

func (c *mapCache) Store(_ context.Context, id uint, r *Ranking) {
	c.entries[id] = r
}

func decimalOf(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func profile(id uint, username string) models.Profile {
	return models.Profile{ID: id, Username: username, DisplayRank: "user"}
}

func fixture() *memStore {
	c := &models.Contest{ID: 1, Key: "spring24", Name: "Spring", StartTime: t0, EndTime: t0.Add(3 * time.Hour), IsPublic: true}
	problems := []models.ContestProblem{
		{ID: 11, ContestID: 1, Order: 2, Points: 100, Problem: models.Problem{ID: 2, Code: "bb"}},
		{ID: 10, ContestID: 1, Order: 1, Points: 100, Problem: models.Problem{ID: 1, Code: "aa"}},
	}
	parts := []models.Participation{
		{ID: 1, ContestID: 1, ProfileID: 1, Profile: profile(1, "alice"), RealStart: t0, Score: 200, Cumtime: 3600},
		{ID: 2, ContestID: 1, ProfileID: 2, Profile: profile(2, "bob"), RealStart: t0, Score: 137, Cumtime: 2400},
		{ID: 3, ContestID: 1, ProfileID: 3, Profile: profile(3, "carol"), RealStart: t0, Score: 137, Cumtime: 2400},
		{ID: 4, ContestID: 1, ProfileID: 4, Profile: profile(4, "dave"), RealStart: t0},
		{ID: 5, ContestID: 1, ProfileID: 5, Profile: profile(5, "erin"), RealStart: t0, Spectate: true, Score: 200},
		{ID: 6, ContestID: 1, ProfileID: 1, Profile: profile(1, "alice"), RealStart: t0.Add(72 * time.Hour), Virtual: 1, Score: 50},
	}
	subs := []fakeSub{
		{1, 10, 100, t0.Add(20 * time.Minute)},
		{1, 11, 40, t0.Add(30 * time.Minute)},
		{1, 11, 100, t0.Add(40 * time.Minute)},
		{2, 10, 100, t0.Add(10 * time.Minute)},
		{2, 11, 37, t0.Add(30 * time.Minute)},
		{3, 10, 37, t0.Add(10 * time.Minute)},
		{3, 11, 100, t0.Add(30 * time.Minute)},
		{5, 10, 100, t0.Add(5 * time.Minute)},
		{6, 10, 50, t0.Add(72*time.Hour + 45*time.Minute)},
		{6, 11, 0, t0.Add(72*time.Hour + 50*time.Minute)},
	}
	return &memStore{contest: c, problems: problems, parts: parts, subs: subs}
}

func usernames(r *Ranking) []string {
	var out []string
	for _, s := range r.Standings {
		out = append(out, s.Profile.Username)
	}
	return out
}

func ranks(r *Ranking) []string {
	var out []string
	for _, s := range r.Standings {
		out = append(out, s.Label())
	}
	return out
}

func TestBuildOrdersAndRanksLiveParticipants(t *testing.T) {
	s := fixture()
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, usernames(r))
	assert.Equal(t, []string{"1", "2", "2", "4"}, ranks(r))

	require.Len(t, r.Problems, 2)
	assert.Equal(t, "aa", r.Problems[0].Problem.Code)
	assert.Equal(t, "bb", r.Problems[1].Problem.Code)
}

func TestBuildCellStates(t *testing.T) {
	s := fixture()
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)

	bob := r.Standings[1].Profile
	require.Len(t, bob.Problems, 2)
	assert.Equal(t, StateFull, bob.Problems[0].State)
	assert.Equal(t, StatePartial, bob.Problems[1].State)
	assert.Equal(t, "37", bob.Problems[1].Points.String())
	assert.Equal(t, "bb", bob.Problems[1].Code)

	s.subs = append(s.subs, fakeSub{4, 11, 0, t0.Add(time.Hour)})
	r, err = NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	dave := r.Standings[3].Profile
	assert.Nil(t, dave.Problems[0])
	require.NotNil(t, dave.Problems[1])
	assert.Equal(t, StateFailed, dave.Problems[1].State)
}

func TestStateOf(t *testing.T) {
	total := decimalOf(100)
	assert.Equal(t, StateFailed, stateOf(decimalOf(0), total))
	assert.Equal(t, StateFull, stateOf(decimalOf(100), total))
	assert.Equal(t, StatePartial, stateOf(decimalOf(37), total))
}

func TestBuildUsesLatestSubmissionTime(t *testing.T) {
	s := fixture()
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)

	// best 100 at 40m, and no later submission: time is 40m
	alice := r.Standings[0].Profile
	assert.Equal(t, 40*time.Minute, alice.Problems[1].Time)

	// a later, worse submission moves the reported time but not the points
	s.subs = append(s.subs, fakeSub{1, 11, 10, t0.Add(2 * time.Hour)})
	r, err = NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	alice = r.Standings[0].Profile
	assert.Equal(t, "100", alice.Problems[1].Points.String())
	assert.Equal(t, 2*time.Hour, alice.Problems[1].Time)
}

func TestBuildEmptyParticipantHasNullCells(t *testing.T) {
	s := fixture()
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)

	dave := r.Standings[3].Profile
	assert.Equal(t, "dave", dave.Username)
	assert.True(t, dave.Points.IsZero())
	assert.Equal(t, []*BestSolution{nil, nil}, dave.Problems)

	m, err := NewAggregator(s).AggregateOne(context.Background(), s.contest, &s.parts[3], s.problems, Window{})
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestBuildOwnVirtualRow(t *testing.T) {
	s := fixture()
	alice := profile(1, "alice")
	virtual := s.parts[5]
	virtual.Profile = models.Profile{}
	v := &contest.Viewer{Profile: &alice, Current: &virtual}

	plain, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, v, Options{})
	require.NoError(t, err)

	require.Len(t, r.Standings, len(plain.Standings)+1)
	own := r.Standings[0]
	assert.True(t, own.Own)
	assert.Equal(t, OwnRankLabel, own.Label())
	assert.Equal(t, "alice", own.Profile.Username)
	assert.Equal(t, plain.Standings, r.Standings[1:])

	// elapsed is measured from the virtual start, three days after the contest
	require.NotNil(t, own.Profile.Problems[0])
	assert.Equal(t, 45*time.Minute, own.Profile.Problems[0].Time)
	assert.Equal(t, StatePartial, own.Profile.Problems[0].State)
	assert.Equal(t, StateFailed, own.Profile.Problems[1].State)
}

func TestBuildLiveViewerGetsNoOwnRow(t *testing.T) {
	s := fixture()
	bob := profile(2, "bob")
	v := &contest.Viewer{Profile: &bob, Current: &s.parts[1]}

	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, v, Options{})
	require.NoError(t, err)
	assert.Len(t, r.Standings, 4)
	for _, st := range r.Standings {
		assert.False(t, st.Own)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	s := fixture()
	b := NewBuilder(s, nil)
	first, err := b.Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	second, err := b.Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildAsOfInstant(t *testing.T) {
	s := fixture()
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{At: t0.Add(25 * time.Minute)})
	require.NoError(t, err)

	// by 25m: alice 100 (aa@20m), bob 100 (aa@10m), carol 37, dave 0
	assert.Equal(t, []string{"bob", "alice", "carol", "dave"}, usernames(r))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ranks(r))
	assert.Equal(t, int64(600), r.Standings[0].Profile.Cumtime)
	assert.Equal(t, "100", r.Standings[0].Profile.Points.String())
	assert.Nil(t, r.Standings[0].Profile.Problems[1])
}

func TestBuildExcludesSpectatorsAndVirtuals(t *testing.T) {
	s := fixture()
	r, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	for _, st := range r.Standings {
		assert.NotEqual(t, uint(5), st.Profile.ParticipationID)
		assert.NotEqual(t, uint(6), st.Profile.ParticipationID)
	}
}

func TestBuildUsesCache(t *testing.T) {
	s := fixture()
	cache := &mapCache{entries: make(map[uint]*Ranking)}
	b := NewBuilder(s, cache)

	first, err := b.Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	second, err := b.Build(context.Background(), s.contest, contest.Anonymous, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.contestBestCalls)

	_, err = b.Build(context.Background(), s.contest, contest.Anonymous, Options{At: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 2, s.contestBestCalls)
}

func TestBuildPropagatesStoreErrors(t *testing.T) {
	s := fixture()
	s.err = errors.New("connection reset")
	_, err := NewBuilder(s, nil).Build(context.Background(), s.contest, contest.Anonymous, Options{})
	assert.ErrorIs(t, err, s.err)
}
