package models

import (
	"time"

	"github.com/google/uuid"
)

type IngestionStatus string

const (
	StatusQueued     IngestionStatus = "queued"
	StatusProcessing IngestionStatus = "processing"
	StatusCompleted  IngestionStatus = "completed"
	StatusFailed     IngestionStatus = "failed"
)

// IngestionJob tracks one uploaded résumé through extraction and graph upsert.
// Each job owns exactly one talent_id.
type IngestionJob struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TalentID         string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"talent_id"`
	OriginalFilename string          `gorm:"type:text" json:"original_filename"`
	FilePath         string          `gorm:"type:text" json:"-"`
	Status           IngestionStatus `gorm:"not null;default:'queued';index" json:"status"`
	FullName         *string         `gorm:"type:text" json:"full_name,omitempty"`
	ErrorMessage     *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (IngestionJob) TableName() string {
	return "ingestion_jobs"
}
