package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/services"
)

type fakeMatcher struct {
	got      services.MatchRequest
	outcomes []services.MatchOutcome
	err      error
}

func (f *fakeMatcher) Match(_ context.Context, req services.MatchRequest) ([]services.MatchOutcome, error) {
	f.got = req
	return f.outcomes, f.err
}

func (f *fakeMatcher) Results(context.Context, string) ([]models.MatchingResult, error) {
	return nil, nil
}

type fakeJDRepo struct {
	jds     map[string]*models.JobDescription
	deleted []string
}

func (f *fakeJDRepo) Upsert(_ context.Context, jd *models.JobDescription) error {
	f.jds[jd.JDID] = jd
	return nil
}

func (f *fakeJDRepo) FindByID(_ context.Context, jdID string) (*models.JobDescription, error) {
	jd, ok := f.jds[jdID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return jd, nil
}

func (f *fakeJDRepo) List(context.Context, int) ([]models.JobDescription, error) {
	return nil, nil
}

func (f *fakeJDRepo) Delete(_ context.Context, jdID string) error {
	if _, ok := f.jds[jdID]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.jds, jdID)
	f.deleted = append(f.deleted, jdID)
	return nil
}

type fakeGraphRepo struct {
	summaries map[string]*models.CandidateSummary
	deleted   []string
}

func (f *fakeGraphRepo) UpsertCandidateGraph(context.Context, *repositories.CandidateGraph) (*repositories.UpsertReport, error) {
	return &repositories.UpsertReport{}, nil
}

func (f *fakeGraphRepo) GetCandidateSummary(_ context.Context, talentID string) (*models.CandidateSummary, error) {
	s, ok := f.summaries[talentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return s, nil
}

func (f *fakeGraphRepo) DeleteCandidate(_ context.Context, talentID string) error {
	if _, ok := f.summaries[talentID]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.summaries, talentID)
	f.deleted = append(f.deleted, talentID)
	return nil
}

type fakeVectors struct {
	services.QdrantService
	texts   map[string]string
	deleted []string
}

func (f *fakeVectors) GetResumeText(_ context.Context, talentID string) (string, bool, error) {
	text, ok := f.texts[talentID]
	return text, ok, nil
}

func (f *fakeVectors) DeleteCandidate(_ context.Context, talentID string) error {
	f.deleted = append(f.deleted, talentID)
	delete(f.texts, talentID)
	return nil
}

type fakeStorage struct {
	services.StorageService
	deleted []string
}

func (f *fakeStorage) DeleteFile(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestQuestionText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "absent", raw: "", want: ""},
		{name: "null", raw: "null", want: ""},
		{name: "string", raw: `"senior go engineer"`, want: "senior go engineer"},
		{name: "object", raw: `{ "role": "sre",  "years": 5 }`, want: `{"role":"sre","years":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := questionText(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleMatch(t *testing.T) {
	score := 3.0
	matcher := &fakeMatcher{outcomes: []services.MatchOutcome{
		{
			Match: services.CandidateMatch{
				Summary:            models.CandidateSummary{TalentID: "t-1", FullName: "Ada"},
				SimilarityScore:    0.9,
				QualificationScore: &score,
			},
			ScoringDetails: map[string]any{"totalScore": 3},
		},
		{
			Match:          services.CandidateMatch{Summary: models.CandidateSummary{TalentID: "t-2"}},
			ScoringDetails: map[string]any{"error": "boom"},
			Error:          "boom",
		},
	}}

	app := newApp()
	app.Post("/matches", NewMatchHandler(matcher).HandleMatch)

	req := httptest.NewRequest("POST", "/matches",
		strings.NewReader(`{"question": {"skills": ["go"]}, "number_candidate": 2, "jd_id": "jd-1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, `{"skills":["go"]}`, matcher.got.Query)
	assert.Equal(t, 2, matcher.got.NumberCandidate)
	assert.Equal(t, "jd-1", matcher.got.JDID)

	body := decode(t, resp.Body)
	candidates := body["candidates"].([]any)
	require.Len(t, candidates, 2)
	assert.Equal(t, 3.0, candidates[0].(map[string]any)["qualification_score"])
	assert.Nil(t, candidates[1].(map[string]any)["qualification_score"])
	assert.Equal(t, "boom", candidates[1].(map[string]any)["error"])
}

func TestHandleMatch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unknown job description", err: services.ErrNotFound, want: fiber.StatusNotFound},
		{name: "nothing to match", err: services.ErrInvalidRequest, want: fiber.StatusBadRequest},
		{name: "store down", err: &services.StoreError{Store: "graph", Op: "find", Err: assert.AnError}, want: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp()
			app.Post("/matches", NewMatchHandler(&fakeMatcher{err: tt.err}).HandleMatch)

			req := httptest.NewRequest("POST", "/matches", strings.NewReader(`{"question": "go"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestJobDescriptionDelete(t *testing.T) {
	jdRepo := &fakeJDRepo{jds: map[string]*models.JobDescription{
		"jd-1": {JDID: "jd-1", FilePath: "uploads/jd_1.pdf"},
		"jd-2": {JDID: "jd-2"},
	}}
	storage := &fakeStorage{}

	app := newApp()
	app.Delete("/job-descriptions/:jdId", NewJobDescriptionHandler(jdRepo, nil, storage, zap.NewNop()).HandleDelete)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/job-descriptions/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Empty(t, jdRepo.deleted)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/job-descriptions/jd-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"jd-1"}, jdRepo.deleted)
	assert.Equal(t, []string{"uploads/jd_1.pdf"}, storage.deleted)
	assert.Contains(t, jdRepo.jds, "jd-2")
}

func TestResumeGetAndDelete(t *testing.T) {
	graph := &fakeGraphRepo{summaries: map[string]*models.CandidateSummary{
		"t-1": {TalentID: "t-1", FullName: "Ada", Skills: []string{"Go"}},
	}}
	vectors := &fakeVectors{texts: map[string]string{
		"t-1": `{"full_name":"Ada"}`,
		"t-2": `{"full_name":"Vector Only"}`,
	}}
	h := NewResumeHandler(nil, graph, vectors, nil, nil, 10, zap.NewNop())

	app := newApp()
	app.Get("/resumes/:talentId", h.HandleGet)
	app.Delete("/candidates/:talentId", h.HandleDelete)

	resp, err := app.Test(httptest.NewRequest("GET", "/resumes/t-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, "Ada", body["full_name"])
	assert.Equal(t, `{"full_name":"Ada"}`, body["text"])

	resp, err = app.Test(httptest.NewRequest("GET", "/resumes/t-2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode(t, resp.Body)
	assert.Equal(t, true, body["summary"].(map[string]any)["graph_missing"])

	resp, err = app.Test(httptest.NewRequest("GET", "/resumes/nobody", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/candidates/t-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"t-1"}, graph.deleted)
	assert.Equal(t, []string{"t-1"}, vectors.deleted)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/candidates/t-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
