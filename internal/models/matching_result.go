package models

import (
	"time"

	"gorm.io/datatypes"
)

// MatchingResult is the persisted outcome of scoring one candidate. JDID is
// empty when the match ran against ad-hoc job text.
type MatchingResult struct {
	TalentID           string         `gorm:"type:varchar(64);primaryKey" json:"talent_id"`
	JDID               string         `gorm:"column:jd_id;type:varchar(64);primaryKey;default:''" json:"jd_id"`
	FullName           string         `gorm:"type:text" json:"full_name"`
	SimilarityScore    float64        `json:"similarity_score"`
	QualificationScore *float64       `json:"qualification_score"`
	ResultJSON         datatypes.JSON `gorm:"column:result_json" json:"result_json"`
	CreatedAt          time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"default:CURRENT_TIMESTAMP;index" json:"updated_at"`
}

func (MatchingResult) TableName() string {
	return "matching_results"
}
