package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/talent-graph/internal/models"
)

// CandidateGraph is everything written for one résumé. Labels are expected to
// be normalized already.
type CandidateGraph struct {
	Candidate            models.Candidate
	Experience           []models.WorkedAt
	ProgrammingLanguages []string
	Frameworks           []string
	Skills               []string
}

type SkippedEntity struct {
	Kind  string `json:"kind"`
	Key   string `json:"key"`
	Error string `json:"error"`
}

// UpsertReport lists sub-entities that failed and were rolled back to their
// savepoint while the rest of the candidate committed.
type UpsertReport struct {
	TalentID string          `json:"talent_id"`
	Written  int             `json:"written"`
	Skipped  []SkippedEntity `json:"skipped,omitempty"`
}

type GraphRepository interface {
	UpsertCandidateGraph(ctx context.Context, graph *CandidateGraph) (*UpsertReport, error)
	GetCandidateSummary(ctx context.Context, talentID string) (*models.CandidateSummary, error)
	DeleteCandidate(ctx context.Context, talentID string) error
}

type graphRepository struct {
	db *gorm.DB
}

func NewGraphRepository(db *gorm.DB) GraphRepository {
	return &graphRepository{db: db}
}

// WorkedAtHash keys a WORKED_AT edge on all of its attributes.
func WorkedAtHash(position, duration, description string) string {
	sum := sha256.Sum256([]byte(position + "\x1f" + duration + "\x1f" + description))
	return hex.EncodeToString(sum[:])
}

func (r *graphRepository) UpsertCandidateGraph(ctx context.Context, graph *CandidateGraph) (*UpsertReport, error) {
	if graph == nil || graph.Candidate.TalentID == "" {
		return nil, fmt.Errorf("candidate talent_id is required")
	}

	talentID := graph.Candidate.TalentID
	report := &UpsertReport{TalentID: talentID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := graph.Candidate
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "talent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "updated_at"}),
		}).Create(&candidate).Error
		if err != nil {
			return fmt.Errorf("failed to upsert candidate: %w", err)
		}
		report.Written++

		step := 0
		attempt := func(kind, key string, fn func(*gorm.DB) error) error {
			step++
			name := fmt.Sprintf("sp_%d", step)
			if err := tx.SavePoint(name).Error; err != nil {
				return fmt.Errorf("failed to create savepoint: %w", err)
			}
			if err := fn(tx); err != nil {
				if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
					return fmt.Errorf("failed to roll back %s %q: %w", kind, key, rbErr)
				}
				report.Skipped = append(report.Skipped, SkippedEntity{Kind: kind, Key: key, Error: err.Error()})
				return nil
			}
			report.Written++
			return nil
		}

		for _, exp := range graph.Experience {
			edge := exp
			edge.ID = 0
			edge.TalentID = talentID
			edge.AttributesHash = WorkedAtHash(edge.Position, edge.Duration, edge.Description)

			err := attempt("WORKED_AT", edge.CompanyName, func(tx *gorm.DB) error {
				if edge.CompanyName == "" {
					return fmt.Errorf("company name is empty")
				}
				if err := mergeNode(tx, &models.Company{Name: edge.CompanyName}, "name"); err != nil {
					return err
				}
				return mergeNode(tx, &edge, "talent_id", "company_name", "attributes_hash")
			})
			if err != nil {
				return err
			}
		}

		for _, lang := range graph.ProgrammingLanguages {
			err := attempt("HAS_PROGRAMMING_LANGUAGE", lang, func(tx *gorm.DB) error {
				if err := mergeNode(tx, &models.ProgrammingLanguage{Lang: lang}, "lang"); err != nil {
					return err
				}
				return mergeNode(tx, &models.HasProgrammingLanguage{TalentID: talentID, Lang: lang}, "talent_id", "lang")
			})
			if err != nil {
				return err
			}
		}

		for _, fw := range graph.Frameworks {
			err := attempt("HAS_FRAMEWORKS", fw, func(tx *gorm.DB) error {
				if err := mergeNode(tx, &models.Framework{Framework: fw}, "framework"); err != nil {
					return err
				}
				return mergeNode(tx, &models.HasFramework{TalentID: talentID, Framework: fw}, "talent_id", "framework")
			})
			if err != nil {
				return err
			}
		}

		for _, skill := range graph.Skills {
			err := attempt("HAS_SKILLS", skill, func(tx *gorm.DB) error {
				if err := mergeNode(tx, &models.Skill{Skill: skill}, "skill"); err != nil {
					return err
				}
				return mergeNode(tx, &models.HasSkill{TalentID: talentID, Skill: skill}, "talent_id", "skill")
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// mergeNode inserts value unless a row with the same key columns exists.
func mergeNode(tx *gorm.DB, value interface{}, keys ...string) error {
	columns := make([]clause.Column, 0, len(keys))
	for _, k := range keys {
		columns = append(columns, clause.Column{Name: k})
	}
	if err := tx.Clauses(clause.OnConflict{Columns: columns, DoNothing: true}).Create(value).Error; err != nil {
		return fmt.Errorf("failed to merge %T: %w", value, err)
	}
	return nil
}

func (r *graphRepository) GetCandidateSummary(ctx context.Context, talentID string) (*models.CandidateSummary, error) {
	db := r.db.WithContext(ctx)

	var candidate models.Candidate
	if err := db.Where("talent_id = ?", talentID).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}

	summary := &models.CandidateSummary{
		TalentID: candidate.TalentID,
		FullName: candidate.FullName,
	}

	if err := db.Where("talent_id = ?", talentID).Order("id ASC").Find(&summary.Experience).Error; err != nil {
		return nil, fmt.Errorf("failed to load experience: %w", err)
	}

	seen := make(map[string]struct{}, len(summary.Experience))
	for _, exp := range summary.Experience {
		if _, ok := seen[exp.CompanyName]; ok {
			continue
		}
		seen[exp.CompanyName] = struct{}{}
		summary.Companies = append(summary.Companies, exp.CompanyName)
	}

	if err := db.Model(&models.HasProgrammingLanguage{}).Where("talent_id = ?", talentID).
		Order("lang ASC").Pluck("lang", &summary.ProgrammingLanguages).Error; err != nil {
		return nil, fmt.Errorf("failed to load programming languages: %w", err)
	}
	if err := db.Model(&models.HasFramework{}).Where("talent_id = ?", talentID).
		Order("framework ASC").Pluck("framework", &summary.Frameworks).Error; err != nil {
		return nil, fmt.Errorf("failed to load frameworks: %w", err)
	}
	if err := db.Model(&models.HasSkill{}).Where("talent_id = ?", talentID).
		Order("skill ASC").Pluck("skill", &summary.Skills).Error; err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}

	return summary, nil
}

// DeleteCandidate removes the candidate and its edges. Shared nodes stay.
func (r *graphRepository) DeleteCandidate(ctx context.Context, talentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, edge := range []interface{}{
			&models.WorkedAt{},
			&models.HasProgrammingLanguage{},
			&models.HasFramework{},
			&models.HasSkill{},
		} {
			if err := tx.Where("talent_id = ?", talentID).Delete(edge).Error; err != nil {
				return fmt.Errorf("failed to delete %T edges: %w", edge, err)
			}
		}

		result := tx.Where("talent_id = ?", talentID).Delete(&models.Candidate{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete candidate: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
