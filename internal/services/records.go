package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const UnknownFullName = "Unknown"

type ExperienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type EducationEntry struct {
	School   string `json:"school"`
	Major    string `json:"major"`
	Degree   string `json:"degree"`
	Duration string `json:"duration"`
}

type TechnicalSkills struct {
	ProgrammingLanguages []string `json:"programming_languages"`
	Frameworks           []string `json:"frameworks"`
	Skills               []string `json:"skills"`
}

// ResumeRecord is the typed form of an extracted résumé. Fields the model
// left out take the zero value except FullName, which defaults to "Unknown".
type ResumeRecord struct {
	FullName           string            `json:"full_name"`
	Experience         []ExperienceEntry `json:"experience"`
	Education          []EducationEntry  `json:"education"`
	TechnicalSkills    TechnicalSkills   `json:"technical_skills"`
	KeyAccomplishments []string          `json:"key_accomplishments"`
	Warnings           []string          `json:"-"`
}

type JobRecord struct {
	Title                   string   `json:"title"`
	Company                 string   `json:"company"`
	Location                string   `json:"location"`
	RequiredQualifications  []string `json:"required_qualifications"`
	PreferredQualifications []string `json:"preferred_qualifications"`
	Description             string   `json:"description"`
	ExperienceLevel         string   `json:"experience_level"`
	EmploymentType          string   `json:"employment_type"`
	Warnings                []string `json:"-"`
}

// HasQualifications reports whether the record lists anything to score against.
func (j *JobRecord) HasQualifications() bool {
	return j != nil && (len(j.RequiredQualifications) > 0 || len(j.PreferredQualifications) > 0)
}

type QualificationScore struct {
	Qualification string  `json:"qualification"`
	Score         float64 `json:"score"`
	Explanation   string  `json:"explanation"`
}

type ScoringBreakdown struct {
	RequiredTotal  float64 `json:"requiredTotal"`
	PreferredTotal float64 `json:"preferredTotal"`
}

type ScoreRecord struct {
	RequiredScores   []QualificationScore `json:"requiredScores"`
	PreferredScores  []QualificationScore `json:"preferredScores"`
	TotalScore       float64              `json:"totalScore"`
	OverallFeedback  string               `json:"overallFeedback"`
	ScoringBreakdown ScoringBreakdown     `json:"scoringBreakdown"`
	Warnings         []string             `json:"-"`
}

func BuildResumeRecord(m map[string]any) *ResumeRecord {
	rec := &ResumeRecord{FullName: UnknownFullName}
	w := &warnings{}

	for key, value := range m {
		switch key {
		case "full_name", "name":
			if name := normalizeLabel(coerceString(value)); name != "" {
				rec.FullName = name
			}
		case "experience":
			for i, item := range asObjects(value, "experience", w) {
				entry := ExperienceEntry{}
				for k, v := range item {
					switch k {
					case "company":
						entry.Company = coerceString(v)
					case "position", "title", "role":
						entry.Position = coerceString(v)
					case "duration":
						entry.Duration = coerceString(v)
					case "description":
						entry.Description = coerceString(v)
					default:
						w.add("experience[%d]: unrecognized field %q", i, k)
					}
				}
				rec.Experience = append(rec.Experience, entry)
			}
		case "education":
			for i, item := range asObjects(value, "education", w) {
				entry := EducationEntry{}
				for k, v := range item {
					switch k {
					case "school":
						entry.School = coerceString(v)
					case "major":
						entry.Major = coerceString(v)
					case "degree":
						entry.Degree = coerceString(v)
					case "duration":
						entry.Duration = coerceString(v)
					default:
						w.add("education[%d]: unrecognized field %q", i, k)
					}
				}
				rec.Education = append(rec.Education, entry)
			}
		case "technical_skills":
			skills, ok := value.(map[string]any)
			if !ok {
				if value != nil {
					w.add("technical_skills: expected object, got %T", value)
				}
				continue
			}
			for k, v := range skills {
				switch k {
				case "programming_languages":
					rec.TechnicalSkills.ProgrammingLanguages = labelList(v, k, w)
				case "frameworks":
					rec.TechnicalSkills.Frameworks = labelList(v, k, w)
				case "skills":
					rec.TechnicalSkills.Skills = labelList(v, k, w)
				default:
					w.add("technical_skills: unrecognized field %q", k)
				}
			}
		case "key_accomplishments":
			rec.KeyAccomplishments = stringList(value, key, w)
		default:
			w.add("unrecognized field %q", key)
		}
	}

	rec.Warnings = w.sorted()
	return rec
}

func BuildJobRecord(m map[string]any) *JobRecord {
	rec := &JobRecord{}
	w := &warnings{}

	for key, value := range m {
		switch key {
		case "title":
			rec.Title = coerceString(value)
		case "company":
			rec.Company = coerceString(value)
		case "location":
			rec.Location = coerceString(value)
		case "required_qualifications":
			rec.RequiredQualifications = stringList(value, key, w)
		case "preferred_qualifications":
			rec.PreferredQualifications = stringList(value, key, w)
		case "description":
			rec.Description = coerceString(value)
		case "experience_level":
			rec.ExperienceLevel = coerceString(value)
		case "employment_type":
			rec.EmploymentType = coerceString(value)
		default:
			w.add("unrecognized field %q", key)
		}
	}

	rec.Warnings = w.sorted()
	return rec
}

// BuildScoreRecord aggregates per-qualification scores. A missing or
// non-numeric score counts as 0. The total is the plain sum of both lists.
func BuildScoreRecord(m map[string]any) *ScoreRecord {
	rec := &ScoreRecord{
		RequiredScores:  []QualificationScore{},
		PreferredScores: []QualificationScore{},
	}
	w := &warnings{}

	for key, value := range m {
		switch key {
		case "requiredScores":
			rec.RequiredScores = scoreList(value, key, w)
		case "preferredScores":
			rec.PreferredScores = scoreList(value, key, w)
		case "overallFeedback":
			rec.OverallFeedback = coerceString(value)
		case "totalScore", "scoringBreakdown":
			// recomputed below
		default:
			w.add("unrecognized field %q", key)
		}
	}

	for _, s := range rec.RequiredScores {
		rec.ScoringBreakdown.RequiredTotal += s.Score
	}
	for _, s := range rec.PreferredScores {
		rec.ScoringBreakdown.PreferredTotal += s.Score
	}
	rec.TotalScore = rec.ScoringBreakdown.RequiredTotal + rec.ScoringBreakdown.PreferredTotal

	rec.Warnings = w.sorted()
	return rec
}

func scoreList(value any, field string, w *warnings) []QualificationScore {
	scores := []QualificationScore{}
	for i, item := range asObjects(value, field, w) {
		s := QualificationScore{
			Qualification: coerceString(item["qualification"]),
			Explanation:   coerceString(item["explanation"]),
		}
		score, ok := coerceScore(item["score"])
		if !ok {
			w.add("%s[%d]: score %v treated as 0", field, i, item["score"])
		}
		s.Score = score
		scores = append(scores, s)
	}
	return scores
}

// normalizeLabel trims and collapses internal whitespace. Case is kept, so
// "Acme" and "ACME" stay distinct nodes.
func normalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeLabels normalizes, drops empties and removes duplicates in order.
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		n := normalizeLabel(l)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func asObjects(value any, field string, w *warnings) []map[string]any {
	if value == nil {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		if obj, isObj := value.(map[string]any); isObj {
			return []map[string]any{obj}
		}
		w.add("%s: expected list, got %T", field, value)
		return nil
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			w.add("%s[%d]: expected object, got %T", field, i, item)
			continue
		}
		out = append(out, obj)
	}
	return out
}

// stringList accepts a JSON array or a single comma-separated string.
func stringList(value any, field string, w *warnings) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s := coerceString(item)
			if s == "" {
				if item != nil {
					w.add("%s[%d]: empty entry dropped", field, i)
				}
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		w.add("%s: expected list, got %T", field, value)
		return nil
	}
}

func labelList(value any, field string, w *warnings) []string {
	return NormalizeLabels(stringList(value, field, w))
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceScore(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

type warnings struct {
	items []string
}

func (w *warnings) add(format string, args ...any) {
	w.items = append(w.items, fmt.Sprintf(format, args...))
}

// sorted returns warnings in a stable order; map iteration is random.
func (w *warnings) sorted() []string {
	sort.Strings(w.items)
	return w.items
}
