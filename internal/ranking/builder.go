package ranking

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache holds base rankings (without any viewer's own row). Implementations
// swallow their own failures; a miss just means rebuilding.
type Cache interface {
	Load(ctx context.Context, contestID uint) (*Ranking, bool)
	Store(ctx context.Context, contestID uint, r *Ranking)
}

type Options struct {
	// At, when set, ranks as of that instant: only earlier submissions count
	// and totals are recomputed from them.
	At time.Time
	// Participation overrides the viewer's current participation as the
	// source of the own row.
	Participation *models.Participation
}

type Builder struct {
	store Store
	agg   *Aggregator
	cache Cache
}

func NewBuilder(store Store, cache Cache) *Builder {
	return &Builder{store: store, agg: NewAggregator(store), cache: cache}
}

// Build ranks the live participations of c. A viewer whose current
// participation is virtual in c additionally gets their own unranked row first.
func (b *Builder) Build(ctx context.Context, c *models.Contest, v *contest.Viewer, opts Options) (*Ranking, error) {
	w := Window{Before: opts.At}

	base, err := b.base(ctx, c, w)
	if err != nil {
		return nil, err
	}

	own := opts.Participation
	if own == nil && v.InContest(c) {
		own = v.Current
	}
	if own == nil || own.Live() || own.ContestID != c.ID {
		return base, nil
	}

	row, err := b.ownRow(ctx, c, v, own, base.Problems, w)
	if err != nil {
		return nil, err
	}
	standings := make([]Standing, 0, len(base.Standings)+1)
	standings = append(standings, Standing{Own: true, Profile: row})
	standings = append(standings, base.Standings...)
	return &Ranking{Standings: standings, Problems: base.Problems}, nil
}

func (b *Builder) base(ctx context.Context, c *models.Contest, w Window) (*Ranking, error) {
	cacheable := b.cache != nil && w.Open()
	if cacheable {
		if r, ok := b.cache.Load(ctx, c.ID); ok {
			return r, nil
		}
	}

	var (
		problems []models.ContestProblem
		parts    []models.Participation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		problems, err = b.store.ContestProblems(gctx, c.ID)
		return err
	})
	g.Go(func() (err error) {
		parts, err = b.store.RankedParticipations(gctx, c.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m, err := b.agg.Aggregate(ctx, c, problems, parts, w)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, len(parts))
	for i := range parts {
		profiles[i] = makeProfile(c, &parts[i], problems, m)
	}
	if !w.Open() {
		for i := range profiles {
			profiles[i].retotal()
		}
		slices.SortStableFunc(profiles, compareProfiles)
	}

	r := &Ranking{Problems: problems, Standings: make([]Standing, 0, len(profiles))}
	for rank, p := range RankFunc(slices.Values(profiles), sameScore) {
		r.Standings = append(r.Standings, Standing{Rank: rank, Profile: p})
	}
	zap.S().Debugf("built ranking for contest %s: %d participants, %d problems, %d cells",
		c.Key, len(profiles), len(problems), len(m))

	if cacheable {
		b.cache.Store(ctx, c.ID, r)
	}
	return r, nil
}

func (b *Builder) ownRow(ctx context.Context, c *models.Contest, v *contest.Viewer, p *models.Participation, problems []models.ContestProblem, w Window) (Profile, error) {
	part := *p
	if part.Profile.ID == 0 && v.Authenticated() && v.Profile.ID == part.ProfileID {
		part.Profile = *v.Profile
	}
	m, err := b.agg.AggregateOne(ctx, c, &part, problems, w)
	if err != nil {
		return Profile{}, err
	}
	row := makeProfile(c, &part, problems, m)
	if !w.Open() {
		row.retotal()
	}
	return row, nil
}

func sameScore(a, b Profile) bool {
	return a.Points.Equal(b.Points) && a.Cumtime == b.Cumtime
}

func compareProfiles(a, b Profile) int {
	if c := b.Points.Cmp(a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Cumtime, b.Cumtime); c != 0 {
		return c
	}
	return cmp.Compare(a.ParticipationID, b.ParticipationID)
}
