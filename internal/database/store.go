package database

import (
	"context"
	"errors"
	"time"

	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed persistence for contests, participations and
// contest submissions.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Contests

func (s *Store) ContestByKey(ctx context.Context, key string) (*models.Contest, error) {
	var c models.Contest
	err := s.db.WithContext(ctx).
		Preload("Organizations").
		Preload("Organizers").
		Where(&models.Contest{Key: key}).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, contest.NotFound(key)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Contests(ctx context.Context, f contest.Filter) ([]models.Contest, error) {
	q := s.db.WithContext(ctx).Model(&models.Contest{}).Preload("Organizations")
	if !f.IncludeNonPublic {
		q = q.Where("is_public = ?", true)
	}
	if !f.IncludeAllPrivate {
		if len(f.OrganizationIDs) > 0 {
			members := s.db.Table("contest_organizations").
				Select("contest_id").
				Where("organization_id IN ?", f.OrganizationIDs)
			q = q.Where("is_private = ? OR id IN (?)", false, members)
		} else {
			q = q.Where("is_private = ?", false)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		from, to := f.From.UTC(), f.To.UTC()
		q = q.Where("(start_time >= ? AND start_time < ?) OR (end_time >= ? AND end_time < ?)", from, to, from, to)
	}

	var contests []models.Contest
	if err := q.Order("start_time desc").Order("id").Find(&contests).Error; err != nil {
		return nil, err
	}
	return contests, nil
}

func (s *Store) ContestBounds(ctx context.Context) (minStart, maxEnd time.Time, ok bool, err error) {
	var row struct {
		MinStart *string
		MaxEnd   *string
	}
	err = s.db.WithContext(ctx).Model(&models.Contest{}).
		Select("MIN(start_time) AS min_start, MAX(end_time) AS max_end").
		Scan(&row).Error
	if err != nil || row.MinStart == nil || row.MaxEnd == nil {
		return time.Time{}, time.Time{}, false, err
	}
	if minStart, err = parseTime(*row.MinStart); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if maxEnd, err = parseTime(*row.MaxEnd); err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return minStart, maxEnd, true, nil
}

func (s *Store) CreateContest(ctx context.Context, c *models.Contest) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.StartTime, c.EndTime = c.StartTime.UTC(), c.EndTime.UTC()
	return s.db.WithContext(ctx).Create(c).Error
}

// Ranking inputs

func (s *Store) ContestProblems(ctx context.Context, contestID uint) ([]models.ContestProblem, error) {
	var problems []models.ContestProblem
	err := s.db.WithContext(ctx).
		Preload("Problem").
		Where("contest_id = ?", contestID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Order("id").
		Find(&problems).Error
	if err != nil {
		return nil, err
	}
	return problems, nil
}

func (s *Store) RankedParticipations(ctx context.Context, contestID uint) ([]models.Participation, error) {
	var parts []models.Participation
	err := s.db.WithContext(ctx).
		Preload("Profile.Organizations").
		Preload("Rating").
		Where("contest_id = ? AND virtual = ? AND spectate = ?", contestID, 0, false).
		Order("score desc, cumtime asc, id asc").
		Find(&parts).Error
	if err != nil {
		return nil, err
	}
	return parts, nil
}

func (s *Store) ContestBest(ctx context.Context, contestID uint, w ranking.Window) ([]ranking.BestRow, error) {
	q := bestQuery(s.db.WithContext(ctx), w).
		Joins("JOIN participations pa ON pa.id = cs.participation_id").
		Where("pa.contest_id = ? AND pa.virtual = ? AND pa.spectate = ?", contestID, 0, false)
	return scanBest(q)
}

func (s *Store) ParticipationBest(ctx context.Context, participationID uint, w ranking.Window) ([]ranking.BestRow, error) {
	return participationBest(s.db.WithContext(ctx), participationID, w)
}

func participationBest(db *gorm.DB, participationID uint, w ranking.Window) ([]ranking.BestRow, error) {
	return scanBest(bestQuery(db, w).Where("cs.participation_id = ?", participationID))
}

// bestQuery groups contest submissions per (participation, problem). The best
// points and the latest date are separate maxima and may come from different
// submissions.
func bestQuery(db *gorm.DB, w ranking.Window) *gorm.DB {
	q := db.Table("contest_submissions AS cs").
		Select("cs.participation_id, cs.contest_problem_id, p.code AS problem_code, " +
			"MAX(cs.points) AS points, MAX(s.date) AS last").
		Joins("JOIN submissions s ON s.id = cs.submission_id").
		Joins("JOIN contest_problems cp ON cp.id = cs.contest_problem_id").
		Joins("JOIN problems p ON p.id = cp.problem_id").
		Group("cs.participation_id, cs.contest_problem_id, p.code")
	if !w.Open() {
		q = q.Where("s.date < ?", w.Before.UTC())
	}
	return q
}

func scanBest(q *gorm.DB) ([]ranking.BestRow, error) {
	var rows []struct {
		ParticipationID  uint
		ContestProblemID uint
		ProblemCode      string
		Points           *float64
		Last             *string
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]ranking.BestRow, 0, len(rows))
	for _, r := range rows {
		row := ranking.BestRow{
			ParticipationID:  r.ParticipationID,
			ContestProblemID: r.ContestProblemID,
			ProblemCode:      r.ProblemCode,
			Points:           r.Points,
		}
		if r.Last != nil {
			t, err := parseTime(*r.Last)
			if err != nil {
				return nil, err
			}
			row.Last = &t
		}
		out = append(out, row)
	}
	return out, nil
}

// Participations

func (s *Store) GetOrCreateLive(ctx context.Context, contestID, profileID uint, start time.Time) (*models.Participation, bool, error) {
	db := s.db.WithContext(ctx)
	p := models.Participation{ContestID: contestID, ProfileID: profileID, RealStart: start.UTC()}
	res := db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil && !isUniqueViolation(res.Error) {
		return nil, false, res.Error
	}
	created := res.Error == nil && res.RowsAffected == 1

	var live models.Participation
	err := db.Where("contest_id = ? AND profile_id = ? AND virtual = ?", contestID, profileID, 0).
		First(&live).Error
	if err != nil {
		return nil, false, err
	}
	return &live, created, nil
}

func (s *Store) SaveParticipation(ctx context.Context, p *models.Participation) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (s *Store) MaxVirtual(ctx context.Context, contestID, profileID uint) (int, error) {
	var n int
	err := s.db.WithContext(ctx).Model(&models.Participation{}).
		Select("COALESCE(MAX(virtual), 0)").
		Where("contest_id = ? AND profile_id = ?", contestID, profileID).
		Scan(&n).Error
	return n, err
}

func (s *Store) InsertParticipation(ctx context.Context, p *models.Participation) error {
	p.RealStart = p.RealStart.UTC()
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
	if isUniqueViolation(err) {
		return contest.ErrConflict
	}
	return err
}

func (s *Store) SetCurrent(ctx context.Context, profileID, participationID uint) error {
	return s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("current_participation_id", participationID).Error
}

func (s *Store) ClearCurrent(ctx context.Context, profileID uint) error {
	return s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("current_participation_id", gorm.Expr("NULL")).Error
}

func (s *Store) ParticipationByID(ctx context.Context, id uint) (*models.Participation, error) {
	var p models.Participation
	if err := s.db.WithContext(ctx).Preload("Contest").Preload("Profile").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Profiles

func (s *Store) ProfileByID(ctx context.Context, id uint) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Preload("Organizations").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Preload("Organizations").Where("username = ?", username).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Viewer resolves the profile and its current participation. A dangling
// current pointer is treated as none.
func (s *Store) Viewer(ctx context.Context, profileID uint) (*contest.Viewer, error) {
	prof, err := s.ProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	var current *models.Participation
	if prof.CurrentParticipationID != nil {
		current, err = s.ParticipationByID(ctx, *prof.CurrentParticipationID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return contest.NewViewer(prof, current), nil
}
