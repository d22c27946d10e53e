package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/repositories"
)

func seedCandidate(t *testing.T, repo repositories.GraphRepository, id, name string) {
	t.Helper()
	_, err := repo.UpsertCandidateGraph(context.Background(), &repositories.CandidateGraph{
		Candidate: models.Candidate{TalentID: id, FullName: name},
		Skills:    []string{"Go"},
	})
	require.NoError(t, err)
}

func TestFindCandidates_EnrichesInVectorOrder(t *testing.T) {
	graphRepo := repositories.NewGraphRepository(newTestDB(t))
	seedCandidate(t, graphRepo, "t-1", "Ada")
	seedCandidate(t, graphRepo, "t-2", "Grace")

	vectors := &fakeVectors{
		hits: []SearchResult{
			{TalentID: "t-2", FullName: "Grace", Score: 0.91, Text: `{"full_name":"Grace"}`},
			{TalentID: "t-1", FullName: "Ada", Score: 0.85},
		},
		texts: map[string]string{"t-1": `{"full_name":"Ada"}`},
	}
	svc := NewRetrievalService(&fakeEmbedder{}, vectors, graphRepo, testTimeouts, 1, zap.NewNop())

	matches := svc.FindCandidates(context.Background(), "go developer", 5)

	require.Len(t, matches, 2)
	assert.Equal(t, "t-2", matches[0].Summary.TalentID)
	assert.Equal(t, "t-1", matches[1].Summary.TalentID)
	assert.InDelta(t, 0.91, matches[0].SimilarityScore, 1e-6)
	assert.Equal(t, []string{"Go"}, matches[0].Summary.Skills)
	assert.Equal(t, `{"full_name":"Ada"}`, matches[1].ResumeText)
	assert.Nil(t, matches[0].QualificationScore)
}

func TestFindCandidates_MissingGraphNodeIsDegraded(t *testing.T) {
	graphRepo := repositories.NewGraphRepository(newTestDB(t))
	vectors := &fakeVectors{
		hits: []SearchResult{{TalentID: "ghost", FullName: "Casper", Score: 0.5, Text: "resume"}},
	}
	svc := NewRetrievalService(&fakeEmbedder{}, vectors, graphRepo, testTimeouts, 1, zap.NewNop())

	matches := svc.FindCandidates(context.Background(), "query", 3)

	require.Len(t, matches, 1)
	assert.True(t, matches[0].Summary.GraphMissing)
	assert.Equal(t, "Casper", matches[0].Summary.FullName)
	assert.Equal(t, "resume", matches[0].ResumeText)
}

func TestFindCandidates_MissingResumeTextKeepsCandidate(t *testing.T) {
	graphRepo := repositories.NewGraphRepository(newTestDB(t))
	seedCandidate(t, graphRepo, "t-1", "Ada")

	vectors := &fakeVectors{
		hits:    []SearchResult{{TalentID: "t-1", Score: 0.7}},
		textErr: errors.New("scroll failed"),
	}
	svc := NewRetrievalService(&fakeEmbedder{}, vectors, graphRepo, testTimeouts, 1, zap.NewNop())

	matches := svc.FindCandidates(context.Background(), "query", 3)

	require.Len(t, matches, 1)
	assert.Equal(t, "Ada", matches[0].Summary.FullName)
	assert.Empty(t, matches[0].ResumeText)
	assert.Nil(t, matches[0].QualificationScore)
}

func TestFindCandidates_UpstreamFailuresYieldEmpty(t *testing.T) {
	graphRepo := repositories.NewGraphRepository(newTestDB(t))

	tests := []struct {
		name     string
		embedder *fakeEmbedder
		vectors  *fakeVectors
	}{
		{
			name:     "embedding fails",
			embedder: &fakeEmbedder{err: errors.New("quota")},
			vectors:  &fakeVectors{hits: []SearchResult{{TalentID: "t-1"}}},
		},
		{
			name:     "vector store unavailable",
			embedder: &fakeEmbedder{},
			vectors:  &fakeVectors{searchErr: storeErr("vector", "query", errors.New("connection refused"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRetrievalService(tt.embedder, tt.vectors, graphRepo, testTimeouts, 2, zap.NewNop())

			matches := svc.FindCandidates(context.Background(), "query", 5)

			assert.NotNil(t, matches)
			assert.Empty(t, matches)
		})
	}
}
