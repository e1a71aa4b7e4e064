package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrProblemNotInContest = errors.New("problem does not belong to the participation's contest")

// RecordSubmission stores a judged submission against a participation and
// refreshes the participation's totals.
func (s *Store) RecordSubmission(ctx context.Context, participationID, contestProblemID uint, sub *models.Submission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var part models.Participation
		if err := tx.First(&part, participationID).Error; err != nil {
			return err
		}
		var cp models.ContestProblem
		if err := tx.First(&cp, contestProblemID).Error; err != nil {
			return err
		}
		if cp.ContestID != part.ContestID {
			return ErrProblemNotInContest
		}

		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		if sub.ProblemID == 0 {
			sub.ProblemID = cp.ProblemID
		}
		sub.ProfileID = part.ProfileID
		sub.Date = sub.Date.UTC()
		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		record := models.ContestSubmission{
			ParticipationID:  participationID,
			ContestProblemID: contestProblemID,
			SubmissionID:     sub.ID,
			Points:           sub.Points,
		}
		if err := tx.Omit("Submission").Create(&record).Error; err != nil {
			return err
		}
		return recalculate(tx, participationID)
	})
}

// Recalculate recomputes score and cumtime of one participation from its
// contest submissions.
func (s *Store) Recalculate(ctx context.Context, participationID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return recalculate(tx, participationID)
	})
}

// RecalculateContest recalculates every participation of a contest and
// returns how many were touched.
func (s *Store) RecalculateContest(ctx context.Context, contestID uint) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Participation{}).
		Where("contest_id = ?", contestID).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Recalculate(ctx, id); err != nil {
			return 0, fmt.Errorf("recalculate participation %d: %w", id, err)
		}
	}
	zap.S().Infof("recalculated %d participations of contest %d", len(ids), contestID)
	return len(ids), nil
}

func recalculate(tx *gorm.DB, participationID uint) error {
	var part models.Participation
	if err := tx.Preload("Contest").First(&part, participationID).Error; err != nil {
		return err
	}
	if part.Contest == nil {
		return fmt.Errorf("participation %d has no contest", participationID)
	}
	rows, err := participationBest(tx, participationID, ranking.Window{})
	if err != nil {
		return err
	}

	start := part.Start(part.Contest)
	score := decimal.Zero
	var cumtime time.Duration
	for _, r := range rows {
		if r.Points == nil {
			continue
		}
		points := decimal.NewFromFloat(*r.Points)
		score = score.Add(points)
		if points.IsPositive() && r.Last != nil {
			cumtime += r.Last.Sub(start)
		}
	}
	cumtime = max(cumtime, 0)

	return tx.Model(&models.Participation{}).
		Where("id = ?", participationID).
		Updates(map[string]interface{}{
			"score":   score.InexactFloat64(),
			"cumtime": int64(cumtime / time.Second),
		}).Error
}
