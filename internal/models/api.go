package models

import "encoding/json"

type UploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	JobID    string `json:"job_id,omitempty"`
	TalentID string `json:"talent_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type IngestionStatusResponse struct {
	ID           string  `json:"id"`
	TalentID     string  `json:"talent_id"`
	Status       string  `json:"status"`
	FullName     *string `json:"full_name,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// MatchRequest carries the hiring query. Question may be a plain string or a
// JSON object; objects are flattened to their JSON text.
type MatchRequest struct {
	Question        json.RawMessage `json:"question"`
	NumberCandidate int             `json:"number_candidate"`
	JobDescription  string          `json:"job_description"`
	JDID            string          `json:"jd_id"`
}

type MatchResponseItem struct {
	TalentID           string           `json:"talent_id"`
	FullName           string           `json:"full_name"`
	SimilarityScore    float64          `json:"similarity_score"`
	QualificationScore *float64         `json:"qualification_score"`
	ScoringDetails     any              `json:"scoring_details"`
	Summary            CandidateSummary `json:"summary"`
	Error              string           `json:"error,omitempty"`
}

type ResumeResponse struct {
	TalentID string           `json:"talent_id"`
	FullName string           `json:"full_name"`
	Text     string           `json:"text"`
	Summary  CandidateSummary `json:"summary"`
}
