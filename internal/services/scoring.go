package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/util"
)

type ScoringService interface {
	Score(ctx context.Context, candidateResumeText, jobDescriptionText string) (*ScoreRecord, error)
}

type scoringService struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
	timeouts      config.TimeoutConfig
	attempts      int
	log           *zap.Logger
}

func NewScoringService(generator TextGenerator, timeouts config.TimeoutConfig, attempts int, log *zap.Logger) ScoringService {
	return &scoringService{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
		timeouts:      timeouts,
		attempts:      attempts,
		log:           logger.WithFields(log, zap.String("component", "scoring")),
	}
}

// Score rates a résumé against the job's qualifications on the 0/1/2 scale.
// The generator is called once; only per-attempt timeouts are retried.
func (s *scoringService) Score(ctx context.Context, candidateResumeText, jobDescriptionText string) (*ScoreRecord, error) {
	if strings.TrimSpace(candidateResumeText) == "" {
		return nil, fmt.Errorf("candidate resume text is empty")
	}

	job := jobRecordFromText(jobDescriptionText)
	prompt := s.promptBuilder.BuildScoringPrompt(candidateResumeText, jobDescriptionText, job)

	raw, err := util.RetryWithContext(ctx, s.attempts,
		util.WithAttemptTimeout(s.timeouts.Generation, func(ctx context.Context) (string, error) {
			out, err := s.generator.Invoke(ctx, GenerationRequest{
				Prompt:        prompt,
				SystemMessage: RecruiterSystemMessage,
			})
			if err != nil && ctx.Err() == nil {
				// only deadlines are worth another attempt
				return "", util.Permanent(err)
			}
			return out, err
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to generate score: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyGenerationResponse
	}

	parsed, err := ParseStructured(raw)
	if err != nil {
		s.log.Warn("score response unparseable", zap.String("raw_preview", logger.TruncateForLog(raw, 300)))
		return nil, err
	}

	return BuildScoreRecord(parsed), nil
}

// jobRecordFromText reads a stored, already extracted job description. Free
// text that is not JSON yields nil.
func jobRecordFromText(text string) *JobRecord {
	parsed, err := ParseStructured(text)
	if err != nil {
		return nil
	}
	return BuildJobRecord(parsed)
}
