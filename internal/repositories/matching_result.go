package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/talent-graph/internal/models"
)

type MatchingResultRepository interface {
	Upsert(ctx context.Context, result *models.MatchingResult) error
	Save(ctx context.Context, results []models.MatchingResult) error
	Load(ctx context.Context, jdID string) ([]models.MatchingResult, error)
}

type matchingResultRepository struct {
	db *gorm.DB
}

func NewMatchingResultRepository(db *gorm.DB) MatchingResultRepository {
	return &matchingResultRepository{db: db}
}

// Upsert replaces any earlier result for the same (talent_id, jd_id).
func (r *matchingResultRepository) Upsert(ctx context.Context, result *models.MatchingResult) error {
	result.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "talent_id"}, {Name: "jd_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name",
			"similarity_score",
			"qualification_score",
			"result_json",
			"updated_at",
		}),
	}).Create(result).Error
	if err != nil {
		return fmt.Errorf("failed to save matching result for %s: %w", result.TalentID, err)
	}
	return nil
}

// Save writes each result on its own. A failing entry does not undo the others.
func (r *matchingResultRepository) Save(ctx context.Context, results []models.MatchingResult) error {
	var errs []error
	for i := range results {
		if err := r.Upsert(ctx, &results[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load returns results most recently updated first. An empty jdID loads all.
func (r *matchingResultRepository) Load(ctx context.Context, jdID string) ([]models.MatchingResult, error) {
	query := r.db.WithContext(ctx).Model(&models.MatchingResult{})
	if jdID != "" {
		query = query.Where("jd_id = ?", jdID)
	}

	var results []models.MatchingResult
	if err := query.Order("updated_at DESC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to load matching results: %w", err)
	}
	return results, nil
}
