package models

import "time"

type JobDescription struct {
	JDID      string    `gorm:"column:jd_id;type:varchar(64);primaryKey" json:"jd_id"`
	FilePath  string    `gorm:"type:text" json:"file_path"`
	URL       string    `gorm:"column:url;type:text" json:"url"`
	Type      string    `gorm:"type:text" json:"type"`
	JD        string    `gorm:"column:jd;type:text" json:"jd"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (JobDescription) TableName() string {
	return "job_descriptions"
}
