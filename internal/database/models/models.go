package models

import (
	"errors"
	"fmt"
	"time"
)

type Organization struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Slug      string `gorm:"uniqueIndex" json:"slug"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type Profile struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Username    string `gorm:"uniqueIndex" json:"username"`
	Name        string `json:"name"`
	DisplayRank string `json:"display_rank"`
	// Perms is a contest.Perm bitset granted by the (external) auth system.
	Perms uint `json:"-"`

	CurrentParticipationID *uint          `json:"current_participation_id"`
	Organizations          []Organization `gorm:"many2many:profile_organizations" json:"organizations"`
}

// LongDisplayName is the name shown next to a ranking row.
func (p *Profile) LongDisplayName() string {
	if p.Name == "" {
		return p.Username
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Username)
}

// Organization returns the profile's primary organization, if any.
func (p *Profile) Organization() *Organization {
	var first *Organization
	for i := range p.Organizations {
		if first == nil || p.Organizations[i].ID < first.ID {
			first = &p.Organizations[i]
		}
	}
	return first
}

type Problem struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"uniqueIndex" json:"code"`
	Name string `json:"name"`
}

type Contest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex" json:"key"`
	Name      string    `json:"name"`
	StartTime time.Time `gorm:"index" json:"start_time"`
	EndTime   time.Time `gorm:"index" json:"end_time"`
	// TimeLimit caps how long one participation may last. Nil means the
	// whole contest window.
	TimeLimit *time.Duration `json:"time_limit"`
	IsPublic  bool           `json:"is_public"`
	// IsPrivate restricts the contest to members of Organizations.
	IsPrivate bool `json:"is_private"`

	Organizations []Organization   `gorm:"many2many:contest_organizations" json:"organizations"`
	Organizers    []Profile        `gorm:"many2many:contest_organizers" json:"-"`
	Problems      []ContestProblem `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

var ErrInvalidWindow = errors.New("contest end time must be after start time")

func (c *Contest) Validate() error {
	if !c.EndTime.After(c.StartTime) {
		return ErrInvalidWindow
	}
	return nil
}

func (c *Contest) Started(now time.Time) bool {
	return !c.StartTime.After(now)
}

func (c *Contest) Ended(now time.Time) bool {
	return c.EndTime.Before(now)
}

// CanJoin reports whether participations may be opened. After the end this
// still holds, joins then become virtual.
func (c *Contest) CanJoin(now time.Time) bool {
	return c.Started(now)
}

func (c *Contest) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

func (c *Contest) IsOrganizer(profileID uint) bool {
	for _, o := range c.Organizers {
		if o.ID == profileID {
			return true
		}
	}
	return false
}

type ContestProblem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ContestID uint    `gorm:"uniqueIndex:idx_contest_order;uniqueIndex:idx_contest_problem" json:"contest_id"`
	ProblemID uint    `gorm:"uniqueIndex:idx_contest_problem" json:"problem_id"`
	Problem   Problem `json:"problem"`
	Points    float64 `json:"points"`
	Order     int     `gorm:"uniqueIndex:idx_contest_order" json:"order"`
}

type Participation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContestID uint      `gorm:"uniqueIndex:idx_participation_slot" json:"contest_id"`
	Contest   *Contest  `json:"-"`
	ProfileID uint      `gorm:"uniqueIndex:idx_participation_slot;index" json:"profile_id"`
	Profile   Profile   `json:"profile"`
	RealStart time.Time `json:"real_start"`
	Score     float64   `gorm:"index" json:"score"`
	// Cumtime is the cumulative penalty time in seconds.
	Cumtime int64 `json:"cumtime"`
	// Virtual is 0 for the live attempt and 1, 2, ... for replays.
	Virtual  int     `gorm:"uniqueIndex:idx_participation_slot" json:"virtual"`
	Spectate bool    `json:"spectate"`
	Rating   *Rating `json:"rating,omitempty"`
}

func (p *Participation) Live() bool {
	return p.Virtual == 0
}

// Start is the baseline that elapsed times of this participation are measured from.
func (p *Participation) Start(c *Contest) time.Time {
	if c.TimeLimit == nil && (p.Live() || p.Spectate) {
		return c.StartTime
	}
	return p.RealStart
}

func (p *Participation) EndTime(c *Contest) time.Time {
	switch {
	case p.Spectate:
		return c.EndTime
	case !p.Live():
		if c.TimeLimit != nil {
			return p.RealStart.Add(*c.TimeLimit)
		}
		return p.RealStart.Add(c.Duration())
	case c.TimeLimit != nil:
		end := p.RealStart.Add(*c.TimeLimit)
		if end.After(c.EndTime) {
			return c.EndTime
		}
		return end
	default:
		return c.EndTime
	}
}

func (p *Participation) Ended(c *Contest, now time.Time) bool {
	return p.EndTime(c).Before(now)
}

type Rating struct {
	ID              uint `gorm:"primaryKey" json:"-"`
	ParticipationID uint `gorm:"uniqueIndex" json:"-"`
	Rating          int  `json:"rating"`
}

// Submission is a judged submission as produced by the judge.
type Submission struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ProfileID uint      `gorm:"index" json:"profile_id"`
	ProblemID uint      `gorm:"index" json:"problem_id"`
	Date      time.Time `gorm:"index" json:"date"`
	Points    float64   `json:"points"`
	Result    string    `json:"result"`
}

// ContestSubmission ties a submission to a participation and contest problem.
type ContestSubmission struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ParticipationID  uint       `gorm:"index:idx_part_problem" json:"participation_id"`
	ContestProblemID uint       `gorm:"index:idx_part_problem" json:"contest_problem_id"`
	SubmissionID     string     `gorm:"uniqueIndex" json:"submission_id"`
	Submission       Submission `json:"submission"`
	Points           float64    `json:"points"`
}
