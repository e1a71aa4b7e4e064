package contest

import "github.com/ZJUSCT/CSRank/internal/database/models"

// Perm is a set of contest permissions resolved by the auth layer.
type Perm uint

const (
	PermSeePrivateContest Perm = 1 << iota
	PermEditOwnContest
	PermEditAllContest

	PermAll = PermSeePrivateContest | PermEditOwnContest | PermEditAllContest
)

func (p Perm) Has(q Perm) bool {
	return p&q == q
}

// Viewer is the requesting user. Profile is nil for anonymous requests and
// Current is the participation the profile's current pointer refers to.
type Viewer struct {
	Profile *models.Profile
	Perms   Perm
	Current *models.Participation
}

// Anonymous is the zero viewer.
var Anonymous = &Viewer{}

func NewViewer(profile *models.Profile, current *models.Participation) *Viewer {
	v := &Viewer{Profile: profile, Current: current}
	if profile != nil {
		v.Perms = Perm(profile.Perms)
	}
	return v
}

func (v *Viewer) Authenticated() bool {
	return v != nil && v.Profile != nil
}

func (v *Viewer) Can(p Perm) bool {
	return v != nil && v.Perms.Has(p)
}

// InContest reports whether the viewer's current participation belongs to c.
func (v *Viewer) InContest(c *models.Contest) bool {
	return v.Authenticated() && v.Current != nil && v.Current.ContestID == c.ID
}

func (v *Viewer) organizes(c *models.Contest) bool {
	return v.Authenticated() && c.IsOrganizer(v.Profile.ID)
}

func (v *Viewer) memberOfAny(orgs []models.Organization) bool {
	if !v.Authenticated() {
		return false
	}
	for _, mine := range v.Profile.Organizations {
		for _, o := range orgs {
			if mine.ID == o.ID {
				return true
			}
		}
	}
	return false
}
