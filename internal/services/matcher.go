package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/util"
)

type MatchRequest struct {
	Query           string
	NumberCandidate int
	JobDescription  string
	JDID            string
}

// MatchOutcome is the result for one candidate. Error is set when scoring
// failed; the other candidates are unaffected.
type MatchOutcome struct {
	Match          CandidateMatch
	ScoringDetails any
	Error          string
}

type MatcherService interface {
	Match(ctx context.Context, req MatchRequest) ([]MatchOutcome, error)
	Results(ctx context.Context, jdID string) ([]models.MatchingResult, error)
}

type matcherService struct {
	retrieval  RetrievalService
	scoring    ScoringService
	jdRepo     repositories.JobDescriptionRepository
	resultRepo repositories.MatchingResultRepository
	matching   config.MatchingConfig
	timeouts   config.TimeoutConfig
	log        *zap.Logger
}

func NewMatcherService(
	retrieval RetrievalService,
	scoring ScoringService,
	jdRepo repositories.JobDescriptionRepository,
	resultRepo repositories.MatchingResultRepository,
	matching config.MatchingConfig,
	timeouts config.TimeoutConfig,
	log *zap.Logger,
) MatcherService {
	return &matcherService{
		retrieval:  retrieval,
		scoring:    scoring,
		jdRepo:     jdRepo,
		resultRepo: resultRepo,
		matching:   matching,
		timeouts:   timeouts,
		log:        logger.WithFields(log, zap.String("component", "matcher")),
	}
}

// Match retrieves candidates for the query and scores each one against the
// job description. Every scored candidate is persisted as soon as it is done,
// so cancelling midway keeps what already finished.
func (m *matcherService) Match(ctx context.Context, req MatchRequest) ([]MatchOutcome, error) {
	jobText := strings.TrimSpace(req.JobDescription)
	if jobText == "" && req.JDID != "" {
		jd, err := m.jdRepo.FindByID(ctx, req.JDID)
		if err != nil {
			return nil, err
		}
		jobText = jd.JD
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = jobText
	}
	if query == "" {
		return nil, fmt.Errorf("%w: question or job description is required", ErrInvalidRequest)
	}
	if jobText == "" {
		jobText = query
	}

	k := req.NumberCandidate
	if k <= 0 {
		k = m.matching.DefaultCandidates
	}

	matches := m.retrieval.FindCandidates(ctx, query, k)
	outcomes := make([]MatchOutcome, len(matches))

	var g errgroup.Group
	limit := m.matching.ScoringConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, match := range matches {
		g.Go(func() error {
			outcomes[i] = m.scoreOne(ctx, match, jobText)
			m.persist(ctx, req.JDID, outcomes[i])
			// never fail the group; one candidate must not cancel the rest
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func (m *matcherService) scoreOne(ctx context.Context, match CandidateMatch, jobText string) MatchOutcome {
	outcome := MatchOutcome{Match: match, ScoringDetails: map[string]any{}}
	if strings.TrimSpace(match.ResumeText) == "" {
		return outcome
	}

	record, err := m.scoring.Score(ctx, match.ResumeText, jobText)
	if err != nil {
		m.log.Warn("scoring failed", logger.Candidate(match.Summary.TalentID), zap.Error(err))
		outcome.Error = err.Error()
		outcome.ScoringDetails = map[string]any{"error": err.Error()}
		return outcome
	}

	total := record.TotalScore
	outcome.Match.QualificationScore = &total
	outcome.ScoringDetails = record
	return outcome
}

func (m *matcherService) persist(ctx context.Context, jdID string, outcome MatchOutcome) {
	log := m.log.With(logger.Candidate(outcome.Match.Summary.TalentID))

	details, err := json.Marshal(outcome.ScoringDetails)
	if err != nil {
		log.Error("failed to encode scoring details", zap.Error(err))
		return
	}

	result := &models.MatchingResult{
		TalentID:           outcome.Match.Summary.TalentID,
		JDID:               jdID,
		FullName:           outcome.Match.Summary.FullName,
		SimilarityScore:    outcome.Match.SimilarityScore,
		QualificationScore: outcome.Match.QualificationScore,
		ResultJSON:         datatypes.JSON(details),
	}

	_, err = util.WithTimeout(ctx, m.timeouts.Store, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.resultRepo.Upsert(ctx, result)
	})
	if err != nil {
		log.Error("failed to persist matching result", zap.Error(err))
	}
}

func (m *matcherService) Results(ctx context.Context, jdID string) ([]models.MatchingResult, error) {
	return m.resultRepo.Load(ctx, jdID)
}
