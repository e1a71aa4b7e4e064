package participation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Store interface {
	// GetOrCreateLive returns the virtual=0 participation of the profile,
	// creating it with the given start when absent.
	GetOrCreateLive(ctx context.Context, contestID, profileID uint, start time.Time) (p *models.Participation, created bool, err error)
	SaveParticipation(ctx context.Context, p *models.Participation) error
	// MaxVirtual returns the highest virtual id used by the profile in the
	// contest, 0 when there is none.
	MaxVirtual(ctx context.Context, contestID, profileID uint) (int, error)
	// InsertParticipation must fail with contest.ErrConflict when the
	// (contest, profile, virtual) slot is taken.
	InsertParticipation(ctx context.Context, p *models.Participation) error
	SetCurrent(ctx context.Context, profileID, participationID uint) error
	ClearCurrent(ctx context.Context, profileID uint) error
}

type Manager struct {
	store Store
	retry config.Retry
	now   func() time.Time
}

func NewManager(store Store, retry config.Retry) *Manager {
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 10 * time.Millisecond
	}
	if retry.MaxInterval < retry.InitialInterval {
		retry.MaxInterval = retry.InitialInterval
	}
	return &Manager{store: store, retry: retry, now: time.Now}
}

// Join opens or resumes the viewer's participation in c and makes it current.
// Before the end of the contest that is the single live participation; after
// it, every join opens a new virtual one.
func (m *Manager) Join(ctx context.Context, c *models.Contest, v *contest.Viewer) (*models.Participation, error) {
	if !v.Authenticated() {
		return nil, contest.ErrNotAuthenticated
	}
	now := m.now()
	if !c.CanJoin(now) {
		return nil, contest.ErrContestNotOngoing
	}
	if v.Current != nil {
		if v.Current.ContestID == c.ID {
			return v.Current, nil
		}
		return nil, &contest.AlreadyInContestError{Current: currentName(v.Current)}
	}

	var (
		p   *models.Participation
		err error
	)
	if c.Ended(now) {
		p, err = m.joinVirtual(ctx, c, v.Profile.ID, now)
	} else {
		p, err = m.joinLive(ctx, c, v.Profile.ID, now)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.SetCurrent(ctx, v.Profile.ID, p.ID); err != nil {
		return nil, err
	}
	zap.S().Infof("profile %d joined contest %s (participation %d, virtual %d)", v.Profile.ID, c.Key, p.ID, p.Virtual)
	return p, nil
}

func (m *Manager) joinLive(ctx context.Context, c *models.Contest, profileID uint, now time.Time) (*models.Participation, error) {
	p, created, err := m.store.GetOrCreateLive(ctx, c.ID, profileID, now)
	if err != nil {
		return nil, err
	}
	spectate := c.IsOrganizer(profileID)
	if p.Spectate != spectate {
		p.Spectate = spectate
		if err := m.store.SaveParticipation(ctx, p); err != nil {
			return nil, err
		}
	}
	if !created && p.Ended(c, now) {
		return nil, contest.ErrTimeLimitExceeded
	}
	return p, nil
}

// joinVirtual claims the next virtual slot. A lost race shows up as a
// conflict on insert; every retry rereads the maximum.
func (m *Manager) joinVirtual(ctx context.Context, c *models.Contest, profileID uint, now time.Time) (*models.Participation, error) {
	var p *models.Participation
	attempt := 0
	op := func() error {
		attempt++
		last, err := m.store.MaxVirtual(ctx, c.ID, profileID)
		if err != nil {
			return backoff.Permanent(err)
		}
		candidate := &models.Participation{
			ContestID: c.ID,
			ProfileID: profileID,
			Virtual:   last + 1,
			RealStart: now,
		}
		err = m.store.InsertParticipation(ctx, candidate)
		if errors.Is(err, contest.ErrConflict) {
			zap.S().Debugf("virtual slot %d of contest %s taken for profile %d, retrying", candidate.Virtual, c.Key, profileID)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		p = candidate
		return nil
	}

	if err := backoff.Retry(op, m.policy(ctx)); err != nil {
		return nil, err
	}
	if attempt > 1 {
		zap.S().Infof("virtual participation %d for contest %s allocated after %d attempts", p.Virtual, c.Key, attempt)
	}
	return p, nil
}

func (m *Manager) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.retry.InitialInterval
	b.MaxInterval = m.retry.MaxInterval
	b.MaxElapsedTime = 0
	var policy backoff.BackOff = b
	if m.retry.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, m.retry.MaxAttempts-1)
	}
	return backoff.WithContext(policy, ctx)
}

// Leave clears the viewer's current participation if it belongs to c.
func (m *Manager) Leave(ctx context.Context, c *models.Contest, v *contest.Viewer) error {
	if !v.Authenticated() {
		return contest.ErrNotAuthenticated
	}
	if v.Current == nil || v.Current.ContestID != c.ID {
		return contest.ErrNotInContest
	}
	if err := m.store.ClearCurrent(ctx, v.Profile.ID); err != nil {
		return err
	}
	zap.S().Infof("profile %d left contest %s", v.Profile.ID, c.Key)
	return nil
}

func currentName(p *models.Participation) string {
	if p.Contest != nil {
		return p.Contest.Name
	}
	return fmt.Sprintf("contest #%d", p.ContestID)
}
