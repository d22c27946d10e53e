package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/util"
)

const (
	unknownCompanyFormat = "Unknown Company (%s)"
	unknownPosition      = "Unknown Position"
)

// JobSource describes where a job description came from.
type JobSource struct {
	FilePath string
	URL      string
}

type ResumeIngestion struct {
	TalentID string                     `json:"talent_id"`
	FullName string                     `json:"full_name"`
	Record   *ResumeRecord              `json:"record"`
	Report   *repositories.UpsertReport `json:"report"`
}

type IngestionService interface {
	Ingest(ctx context.Context, candidateID, fullName string, experience []ExperienceEntry, skills TechnicalSkills) (*repositories.UpsertReport, error)
	IngestJob(ctx context.Context, jdID string, source JobSource, category, extractedText string) (*models.JobDescription, error)
	IngestResumeText(ctx context.Context, talentID, sourceFile, resumeText string) (*ResumeIngestion, error)
	IngestResumeFile(ctx context.Context, talentID, filePath, sourceFile string) (*ResumeIngestion, error)
	IngestJobText(ctx context.Context, source JobSource, category, text string) (*models.JobDescription, error)
	ProcessJob(ctx context.Context, jobID uuid.UUID) error
}

type ingestionService struct {
	graphRepo     repositories.GraphRepository
	jdRepo        repositories.JobDescriptionRepository
	jobRepo       repositories.IngestionJobRepository
	generator     TextGenerator
	embedder      Embedder
	vectors       QdrantService
	loader        DocumentLoader
	promptBuilder *PromptBuilder
	timeouts      config.TimeoutConfig
	log           *zap.Logger
}

func NewIngestionService(
	graphRepo repositories.GraphRepository,
	jdRepo repositories.JobDescriptionRepository,
	jobRepo repositories.IngestionJobRepository,
	generator TextGenerator,
	embedder Embedder,
	vectors QdrantService,
	loader DocumentLoader,
	timeouts config.TimeoutConfig,
	log *zap.Logger,
) IngestionService {
	return &ingestionService{
		graphRepo:     graphRepo,
		jdRepo:        jdRepo,
		jobRepo:       jobRepo,
		generator:     generator,
		embedder:      embedder,
		vectors:       vectors,
		loader:        loader,
		promptBuilder: NewPromptBuilder(),
		timeouts:      timeouts,
		log:           logger.WithFields(log, zap.String("component", "ingestion")),
	}
}

// CompanyLabel returns the Company node name for an experience entry. An
// absent employer gets a placeholder derived from the position.
func CompanyLabel(entry ExperienceEntry) string {
	company := normalizeLabel(entry.Company)
	if company != "" && !strings.EqualFold(company, UnknownFullName) {
		return company
	}

	position := normalizeLabel(entry.Position)
	if position == "" || strings.EqualFold(position, UnknownFullName) {
		position = unknownPosition
	}
	return fmt.Sprintf(unknownCompanyFormat, position)
}

// Ingest writes one candidate and its edges in a single transaction. Calling
// it again with the same input adds nothing; only full_name is overwritten.
func (s *ingestionService) Ingest(ctx context.Context, candidateID, fullName string, experience []ExperienceEntry, skills TechnicalSkills) (*repositories.UpsertReport, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, fmt.Errorf("candidate id is required")
	}
	if fullName = normalizeLabel(fullName); fullName == "" {
		fullName = UnknownFullName
	}

	graph := &repositories.CandidateGraph{
		Candidate:            models.Candidate{TalentID: candidateID, FullName: fullName},
		ProgrammingLanguages: NormalizeLabels(skills.ProgrammingLanguages),
		Frameworks:           NormalizeLabels(skills.Frameworks),
		Skills:               NormalizeLabels(skills.Skills),
	}
	for _, exp := range experience {
		graph.Experience = append(graph.Experience, models.WorkedAt{
			CompanyName: CompanyLabel(exp),
			Position:    strings.TrimSpace(exp.Position),
			Duration:    strings.TrimSpace(exp.Duration),
			Description: strings.TrimSpace(exp.Description),
		})
	}

	report, err := util.WithTimeout(ctx, s.timeouts.Store, func(ctx context.Context) (*repositories.UpsertReport, error) {
		return s.graphRepo.UpsertCandidateGraph(ctx, graph)
	})
	if err != nil {
		return nil, storeErr("graph", "upsert candidate", err)
	}

	log := s.log.With(logger.Candidate(candidateID))
	for _, skipped := range report.Skipped {
		log.Warn("sub-entity skipped",
			zap.String("kind", skipped.Kind),
			zap.String("key", skipped.Key),
			zap.String("error", skipped.Error),
		)
	}
	log.Info("candidate graph upserted", zap.Int("written", report.Written), zap.Int("skipped", len(report.Skipped)))

	return report, nil
}

func (s *ingestionService) IngestJob(ctx context.Context, jdID string, source JobSource, category, extractedText string) (*models.JobDescription, error) {
	if jdID = strings.TrimSpace(jdID); jdID == "" {
		jdID = uuid.New().String()
	}

	jd := &models.JobDescription{
		JDID:      jdID,
		FilePath:  source.FilePath,
		URL:       source.URL,
		Type:      category,
		JD:        extractedText,
		CreatedAt: time.Now(),
	}

	_, err := util.WithTimeout(ctx, s.timeouts.Store, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.jdRepo.Upsert(ctx, jd)
	})
	if err != nil {
		return nil, storeErr("graph", "upsert job description", err)
	}

	s.log.Info("job description stored", logger.JobDescription(jdID), zap.String("category", category))
	return jd, nil
}

// IngestResumeText runs extraction, graph upsert and vector upsert for one résumé.
func (s *ingestionService) IngestResumeText(ctx context.Context, talentID, sourceFile, resumeText string) (*ResumeIngestion, error) {
	log := s.log.With(logger.Candidate(talentID), zap.String("source_file", sourceFile))

	raw, err := util.WithTimeout(ctx, s.timeouts.Generation, func(ctx context.Context) (string, error) {
		return s.generator.Invoke(ctx, GenerationRequest{
			Prompt:        s.promptBuilder.BuildResumeExtractionPrompt(resumeText),
			SystemMessage: ExtractorSystemMessage,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract resume: %w", err)
	}

	parsed, err := ParseStructured(raw)
	if err != nil {
		log.Warn("resume extraction unparseable", zap.String("raw_preview", logger.TruncateForLog(raw, 300)))
		return nil, err
	}

	record := BuildResumeRecord(parsed)
	for _, w := range record.Warnings {
		log.Debug("resume record warning", zap.String("warning", w))
	}

	report, err := s.Ingest(ctx, talentID, record.FullName, record.Experience, record.TechnicalSkills)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resume record: %w", err)
	}

	embedding, err := util.WithTimeout(ctx, s.timeouts.Embedding, func(ctx context.Context) ([]float32, error) {
		return s.embedder.GenerateEmbedding(ctx, string(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed resume: %w", err)
	}

	_, err = util.WithTimeout(ctx, s.timeouts.Store, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.vectors.UpsertCandidate(ctx, CandidateDocument{
			TalentID:   talentID,
			FullName:   record.FullName,
			SourceFile: sourceFile,
			Text:       string(payload),
		}, embedding)
	})
	if err != nil {
		return nil, err
	}

	log.Info("resume ingested", zap.String("full_name", record.FullName))
	return &ResumeIngestion{TalentID: talentID, FullName: record.FullName, Record: record, Report: report}, nil
}

func (s *ingestionService) IngestResumeFile(ctx context.Context, talentID, filePath, sourceFile string) (*ResumeIngestion, error) {
	content, err := s.loader.Load(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}
	return s.IngestResumeText(ctx, talentID, sourceFile, content.Text)
}

// IngestJobText extracts the structured job description and stores it.
func (s *ingestionService) IngestJobText(ctx context.Context, source JobSource, category, text string) (*models.JobDescription, error) {
	if strings.TrimSpace(text) == "" && source.FilePath != "" {
		content, err := s.loader.Load(source.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load job description: %w", err)
		}
		text = content.Text
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("job description text is empty")
	}

	raw, err := util.WithTimeout(ctx, s.timeouts.Generation, func(ctx context.Context) (string, error) {
		return s.generator.Invoke(ctx, GenerationRequest{
			Prompt:        s.promptBuilder.BuildJobExtractionPrompt(text),
			SystemMessage: ExtractorSystemMessage,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract job description: %w", err)
	}

	parsed, err := ParseStructured(raw)
	if err != nil {
		return nil, err
	}

	extracted, err := json.Marshal(BuildJobRecord(parsed))
	if err != nil {
		return nil, fmt.Errorf("failed to encode job record: %w", err)
	}

	return s.IngestJob(ctx, "", source, category, string(extracted))
}

// ProcessJob is the worker entry point for an uploaded résumé.
func (s *ingestionService) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	claimed, err := s.jobRepo.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Debug("job already claimed", zap.String("job_id", jobID.String()))
		return nil
	}

	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get ingestion job: %w", err)
	}

	result, err := s.IngestResumeFile(ctx, job.TalentID, job.FilePath, job.OriginalFilename)

	// the job context may be cancelled by now; the outcome is still recorded
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout())
	defer cancel()

	if err != nil {
		if markErr := s.jobRepo.MarkFailed(finishCtx, jobID, err.Error()); markErr != nil {
			s.log.Error("failed to mark job failed", zap.String("job_id", jobID.String()), zap.Error(markErr))
		}
		return fmt.Errorf("failed to ingest resume: %w", err)
	}

	return s.jobRepo.MarkCompleted(finishCtx, jobID, result.FullName)
}

func (s *ingestionService) storeTimeout() time.Duration {
	if s.timeouts.Store > 0 {
		return s.timeouts.Store
	}
	return 10 * time.Second
}
