package contest

import (
	"context"
	"time"

	"github.com/ZJUSCT/CSRank/internal/database/models"
)

// Filter narrows a contest query to what a viewer may see.
type Filter struct {
	IncludeNonPublic  bool
	IncludeAllPrivate bool
	OrganizationIDs   []uint
	// From and To, when set, keep contests starting or ending in [From, To).
	From, To time.Time
}

type Store interface {
	// ContestByKey returns an error matching ErrNotFound for unknown keys.
	// Organizations and organizers are loaded.
	ContestByKey(ctx context.Context, key string) (*models.Contest, error)
	Contests(ctx context.Context, f Filter) ([]models.Contest, error)
	// ContestBounds returns the earliest start and the latest end over all
	// contests; ok is false when there are none.
	ContestBounds(ctx context.Context) (minStart, maxEnd time.Time, ok bool, err error)
}

// Gate applies contest visibility rules before anything else touches a contest.
type Gate struct {
	store Store
	loc   *time.Location
}

func NewGate(store Store, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{store: store, loc: loc}
}

func (g *Gate) hidden(c *models.Contest, v *Viewer) bool {
	return !c.IsPublic && !v.Can(PermSeePrivateContest) &&
		(!v.Can(PermEditOwnContest) || !v.organizes(c))
}

// Find looks a contest up by key; contests the viewer may not see are
// reported as missing.
func (g *Gate) Find(ctx context.Context, key string, v *Viewer) (*models.Contest, error) {
	c, err := g.store.ContestByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if g.hidden(c, v) {
		return nil, NotFound(key)
	}
	return c, nil
}

// Resolve is Find plus the organization restriction of private contests.
// A viewer already participating in the contest always gets through.
func (g *Gate) Resolve(ctx context.Context, key string, v *Viewer) (*models.Contest, error) {
	c, err := g.store.ContestByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if v.InContest(c) {
		return c, nil
	}
	if g.hidden(c, v) {
		return nil, NotFound(key)
	}
	if c.IsPrivate {
		if !v.Authenticated() || (!v.Can(PermEditAllContest) && !v.memberOfAny(c.Organizations)) {
			return nil, &AccessDeniedError{Name: c.Name, Organizations: c.Organizations}
		}
	}
	return c, nil
}

// CheckRankingVisible rejects ranking requests for contests that are not
// public or have not started yet, unless the viewer may see private contests.
func CheckRankingVisible(c *models.Contest, v *Viewer, now time.Time) error {
	if v.Can(PermSeePrivateContest) {
		return nil
	}
	if !c.IsPublic || !c.Started(now) {
		return NotFound(c.Key)
	}
	return nil
}

func (g *Gate) filterFor(v *Viewer) Filter {
	f := Filter{
		IncludeNonPublic:  v.Can(PermSeePrivateContest),
		IncludeAllPrivate: v.Can(PermEditAllContest),
	}
	if v.Authenticated() {
		for _, o := range v.Profile.Organizations {
			f.OrganizationIDs = append(f.OrganizationIDs, o.ID)
		}
	}
	return f
}

// Visible returns every contest the viewer may browse.
func (g *Gate) Visible(ctx context.Context, v *Viewer) ([]models.Contest, error) {
	return g.store.Contests(ctx, g.filterFor(v))
}
