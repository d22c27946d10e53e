package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/util"
)

// CandidateMatch is one retrieval hit. QualificationScore stays nil until
// scoring runs, and for good when ResumeText is empty.
type CandidateMatch struct {
	Summary            models.CandidateSummary `json:"summary"`
	SimilarityScore    float64                 `json:"similarity_score"`
	ResumeText         string                  `json:"-"`
	QualificationScore *float64                `json:"qualification_score"`
}

type RetrievalService interface {
	FindCandidates(ctx context.Context, queryText string, k int) []CandidateMatch
}

type retrievalService struct {
	embedder  Embedder
	vectors   QdrantService
	graphRepo repositories.GraphRepository
	timeouts  config.TimeoutConfig
	attempts  int
	log       *zap.Logger
}

func NewRetrievalService(
	embedder Embedder,
	vectors QdrantService,
	graphRepo repositories.GraphRepository,
	timeouts config.TimeoutConfig,
	attempts int,
	log *zap.Logger,
) RetrievalService {
	return &retrievalService{
		embedder:  embedder,
		vectors:   vectors,
		graphRepo: graphRepo,
		timeouts:  timeouts,
		attempts:  attempts,
		log:       logger.WithFields(log, zap.String("component", "retrieval")),
	}
}

// FindCandidates returns up to k candidates in vector-similarity order,
// enriched from the graph. It never fails: a broken embedding or vector
// search yields an empty list, and a missing graph node or résumé text
// yields a degraded match instead of dropping the candidate.
func (r *retrievalService) FindCandidates(ctx context.Context, queryText string, k int) []CandidateMatch {
	if k <= 0 {
		return []CandidateMatch{}
	}

	embedding, err := util.RetryWithContext(ctx, r.attempts,
		util.WithAttemptTimeout(r.timeouts.Embedding, func(ctx context.Context) ([]float32, error) {
			return r.embedder.GenerateEmbedding(ctx, queryText)
		}))
	if err != nil {
		r.log.Warn("query embedding failed", zap.Error(err))
		return []CandidateMatch{}
	}

	hits, err := util.RetryWithContext(ctx, r.attempts,
		util.WithAttemptTimeout(r.timeouts.Store, func(ctx context.Context) ([]SearchResult, error) {
			return r.vectors.SearchSimilar(ctx, embedding, k)
		}))
	if err != nil {
		r.log.Warn("vector search failed", zap.Error(err))
		return []CandidateMatch{}
	}

	matches := make([]CandidateMatch, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, r.enrich(ctx, hit))
	}
	return matches
}

func (r *retrievalService) enrich(ctx context.Context, hit SearchResult) CandidateMatch {
	log := r.log.With(logger.Candidate(hit.TalentID))
	match := CandidateMatch{SimilarityScore: float64(hit.Score)}

	summary, err := util.WithTimeout(ctx, r.timeouts.Store, func(ctx context.Context) (*models.CandidateSummary, error) {
		return r.graphRepo.GetCandidateSummary(ctx, hit.TalentID)
	})
	switch {
	case err == nil:
		match.Summary = *summary
	default:
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Warn("graph lookup failed", zap.Error(err))
		} else {
			log.Info("candidate missing from graph")
		}
		match.Summary = models.CandidateSummary{
			TalentID:     hit.TalentID,
			FullName:     hit.FullName,
			GraphMissing: true,
		}
	}
	if match.Summary.FullName == "" {
		match.Summary.FullName = hit.FullName
	}

	match.ResumeText = hit.Text
	if match.ResumeText == "" {
		text, found, err := r.lookupResumeText(ctx, hit.TalentID)
		switch {
		case err != nil:
			log.Warn("resume text lookup failed", zap.Error(err))
		case !found:
			log.Info("resume text missing from vector payload")
		default:
			match.ResumeText = text
		}
	}

	return match
}

func (r *retrievalService) lookupResumeText(ctx context.Context, talentID string) (string, bool, error) {
	type lookup struct {
		text  string
		found bool
	}
	res, err := util.WithTimeout(ctx, r.timeouts.Store, func(ctx context.Context) (lookup, error) {
		text, found, err := r.vectors.GetResumeText(ctx, talentID)
		return lookup{text: text, found: found}, err
	})
	return res.text, res.found, err
}
