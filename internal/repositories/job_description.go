package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/talent-graph/internal/models"
)

type JobDescriptionRepository interface {
	Upsert(ctx context.Context, jd *models.JobDescription) error
	FindByID(ctx context.Context, jdID string) (*models.JobDescription, error)
	List(ctx context.Context, limit int) ([]models.JobDescription, error)
	Delete(ctx context.Context, jdID string) error
}

type jobDescriptionRepository struct {
	db *gorm.DB
}

func NewJobDescriptionRepository(db *gorm.DB) JobDescriptionRepository {
	return &jobDescriptionRepository{db: db}
}

func (r *jobDescriptionRepository) Upsert(ctx context.Context, jd *models.JobDescription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jd_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_path", "url", "type", "jd"}),
	}).Create(jd).Error
	if err != nil {
		return fmt.Errorf("failed to upsert job description: %w", err)
	}
	return nil
}

func (r *jobDescriptionRepository) FindByID(ctx context.Context, jdID string) (*models.JobDescription, error) {
	var jd models.JobDescription
	if err := r.db.WithContext(ctx).Where("jd_id = ?", jdID).First(&jd).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find job description: %w", err)
	}
	return &jd, nil
}

// List returns the newest job descriptions first.
func (r *jobDescriptionRepository) List(ctx context.Context, limit int) ([]models.JobDescription, error) {
	if limit <= 0 {
		limit = 20
	}

	var jds []models.JobDescription
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&jds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list job descriptions: %w", err)
	}
	return jds, nil
}

func (r *jobDescriptionRepository) Delete(ctx context.Context, jdID string) error {
	result := r.db.WithContext(ctx).Where("jd_id = ?", jdID).Delete(&models.JobDescription{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete job description: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
