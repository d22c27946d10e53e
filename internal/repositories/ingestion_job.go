package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/talent-graph/internal/models"
)

type IngestionJobRepository interface {
	Create(ctx context.Context, job *models.IngestionJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.IngestionJob, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, fullName string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
	FindQueued(ctx context.Context, limit int) ([]models.IngestionJob, error)
	RequeueStale(ctx context.Context, staleAfter time.Duration) (int64, error)
}

type ingestionJobRepository struct {
	db *gorm.DB
}

func NewIngestionJobRepository(db *gorm.DB) IngestionJobRepository {
	return &ingestionJobRepository{db: db}
}

func (r *ingestionJobRepository) Create(ctx context.Context, job *models.IngestionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.StatusQueued
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create ingestion job: %w", err)
	}
	return nil
}

func (r *ingestionJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.IngestionJob, error) {
	var job models.IngestionJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find ingestion job: %w", err)
	}
	return &job, nil
}

// Claim moves a queued job to processing. It reports false when another
// worker got there first, so a job is processed at most once at a time.
func (r *ingestionJobRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.IngestionJob{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim ingestion job: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *ingestionJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, fullName string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":        models.StatusCompleted,
		"full_name":     fullName,
		"error_message": nil,
		"updated_at":    time.Now(),
	})
}

func (r *ingestionJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMsg,
		"updated_at":    time.Now(),
	})
}

func (r *ingestionJobRepository) finish(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.IngestionJob{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update ingestion job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ingestionJobRepository) FindQueued(ctx context.Context, limit int) ([]models.IngestionJob, error) {
	var jobs []models.IngestionJob
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find queued jobs: %w", err)
	}
	return jobs, nil
}

// RequeueStale puts jobs stuck in processing longer than staleAfter back in
// the queue, e.g. after the process died mid-job.
func (r *ingestionJobRepository) RequeueStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.IngestionJob{}).
		Where("status = ? AND updated_at < ?", models.StatusProcessing, now.Add(-staleAfter)).
		Updates(map[string]interface{}{
			"status":     models.StatusQueued,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to requeue stale jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
