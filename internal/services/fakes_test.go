package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/models"
)

var testTimeouts = config.TimeoutConfig{}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []GenerationRequest
	respond  func(req GenerationRequest) (string, error)
}

func (f *fakeGenerator) Invoke(_ context.Context, req GenerationRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeVectors struct {
	mu        sync.Mutex
	hits      []SearchResult
	searchErr error
	texts     map[string]string
	textErr   error
	upserted  []CandidateDocument
}

func (f *fakeVectors) InitCollection(context.Context) error { return nil }

func (f *fakeVectors) UpsertCandidate(_ context.Context, doc CandidateDocument, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, doc)
	return nil
}

func (f *fakeVectors) SearchSimilar(_ context.Context, _ []float32, limit int) ([]SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeVectors) GetResumeText(_ context.Context, talentID string) (string, bool, error) {
	if f.textErr != nil {
		return "", false, f.textErr
	}
	text, ok := f.texts[talentID]
	return text, ok && text != "", nil
}

func (f *fakeVectors) ListCandidates(context.Context, int) ([]CandidateDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CandidateDocument(nil), f.upserted...), nil
}

func (f *fakeVectors) DeleteCandidate(context.Context, string) error { return nil }

type fakeRetrieval struct {
	matches []CandidateMatch
}

func (f *fakeRetrieval) FindCandidates(context.Context, string, int) []CandidateMatch {
	return f.matches
}

type fakeLoader struct {
	text string
}

func (f *fakeLoader) Load(filePath string) (*DocumentContent, error) {
	return &DocumentContent{Text: f.text, PageCount: 1, FilePath: filePath}, nil
}

func candidateSummary(id, name string) models.CandidateSummary {
	return models.CandidateSummary{TalentID: id, FullName: name}
}
