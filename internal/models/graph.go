package models

import "time"

// Candidate is the Employee node. One row per ingested résumé.
type Candidate struct {
	TalentID  string    `gorm:"type:varchar(64);primaryKey" json:"talent_id"`
	FullName  string    `gorm:"type:text" json:"full_name"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

type Company struct {
	Name      string    `gorm:"type:text;primaryKey" json:"name"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Company) TableName() string {
	return "companies"
}

type ProgrammingLanguage struct {
	Lang      string    `gorm:"column:lang;type:text;primaryKey" json:"lang"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ProgrammingLanguage) TableName() string {
	return "programming_languages"
}

type Framework struct {
	Framework string    `gorm:"column:framework;type:text;primaryKey" json:"framework"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Framework) TableName() string {
	return "frameworks"
}

type Skill struct {
	Skill     string    `gorm:"column:skill;type:text;primaryKey" json:"skill"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Skill) TableName() string {
	return "skills"
}

// WorkedAt is the Candidate -> Company edge. Two edges merge only when
// every attribute matches, which AttributesHash encodes.
type WorkedAt struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	TalentID       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_worked_at_merge,priority:1;index" json:"talent_id"`
	CompanyName    string    `gorm:"type:text;not null;uniqueIndex:idx_worked_at_merge,priority:2" json:"company"`
	AttributesHash string    `gorm:"type:char(64);not null;uniqueIndex:idx_worked_at_merge,priority:3" json:"-"`
	Position       string    `gorm:"type:text" json:"position"`
	Duration       string    `gorm:"type:text" json:"duration"`
	Description    string    `gorm:"type:text" json:"description"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (WorkedAt) TableName() string {
	return "worked_at"
}

type HasProgrammingLanguage struct {
	TalentID  string    `gorm:"type:varchar(64);primaryKey" json:"talent_id"`
	Lang      string    `gorm:"column:lang;type:text;primaryKey" json:"lang"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (HasProgrammingLanguage) TableName() string {
	return "has_programming_language"
}

type HasFramework struct {
	TalentID  string    `gorm:"type:varchar(64);primaryKey" json:"talent_id"`
	Framework string    `gorm:"column:framework;type:text;primaryKey" json:"framework"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (HasFramework) TableName() string {
	return "has_frameworks"
}

type HasSkill struct {
	TalentID  string    `gorm:"type:varchar(64);primaryKey" json:"talent_id"`
	Skill     string    `gorm:"column:skill;type:text;primaryKey" json:"skill"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (HasSkill) TableName() string {
	return "has_skills"
}

// GraphModels lists every table backing the candidate graph, in migration order.
func GraphModels() []interface{} {
	return []interface{}{
		&Candidate{},
		&Company{},
		&ProgrammingLanguage{},
		&Framework{},
		&Skill{},
		&WorkedAt{},
		&HasProgrammingLanguage{},
		&HasFramework{},
		&HasSkill{},
		&JobDescription{},
		&MatchingResult{},
		&IngestionJob{},
	}
}

// CandidateSummary is the graph view of one candidate used by retrieval.
type CandidateSummary struct {
	TalentID             string     `json:"talent_id"`
	FullName             string     `json:"full_name"`
	Experience           []WorkedAt `json:"experience"`
	Companies            []string   `json:"companies"`
	ProgrammingLanguages []string   `json:"programming_languages"`
	Frameworks           []string   `json:"frameworks"`
	Skills               []string   `json:"skills"`
	GraphMissing         bool       `json:"graph_missing,omitempty"`
}
