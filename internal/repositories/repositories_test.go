package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/talent-graph/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.GraphModels()...))
	return db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func sampleGraph(talentID, name string) *CandidateGraph {
	return &CandidateGraph{
		Candidate: models.Candidate{TalentID: talentID, FullName: name},
		Experience: []models.WorkedAt{
			{CompanyName: "Acme", Position: "Engineer", Duration: "2019-2021", Description: "APIs"},
			{CompanyName: "Globex", Position: "Lead", Duration: "2021-2024", Description: "Platform"},
		},
		ProgrammingLanguages: []string{"Go", "Python"},
		Frameworks:           []string{"Fiber"},
		Skills:               []string{"PostgreSQL", "Kubernetes"},
	}
}

func TestUpsertCandidateGraph_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertCandidateGraph(ctx, sampleGraph("t-1", "Ada Lovelace"))
	require.NoError(t, err)
	assert.Empty(t, first.Skipped)

	snapshot := map[string]int64{}
	tables := map[string]interface{}{
		"candidates": &models.Candidate{},
		"companies":  &models.Company{},
		"langs":      &models.ProgrammingLanguage{},
		"frameworks": &models.Framework{},
		"skills":     &models.Skill{},
		"worked_at":  &models.WorkedAt{},
		"has_lang":   &models.HasProgrammingLanguage{},
		"has_fw":     &models.HasFramework{},
		"has_skill":  &models.HasSkill{},
	}
	for name, model := range tables {
		snapshot[name] = count(t, db, model)
	}

	_, err = repo.UpsertCandidateGraph(ctx, sampleGraph("t-1", "Ada Lovelace"))
	require.NoError(t, err)

	for name, model := range tables {
		assert.Equal(t, snapshot[name], count(t, db, model), name)
	}
	assert.EqualValues(t, 2, snapshot["worked_at"])
	assert.EqualValues(t, 2, snapshot["skills"])
}

func TestUpsertCandidateGraph_SharedEntitiesNotDuplicated(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	for _, id := range []string{"t-1", "t-2"} {
		graph := &CandidateGraph{
			Candidate:  models.Candidate{TalentID: id, FullName: "Candidate " + id},
			Experience: []models.WorkedAt{{CompanyName: "Acme", Position: "Engineer"}},
			Skills:     []string{"Go"},
		}
		_, err := repo.UpsertCandidateGraph(ctx, graph)
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, count(t, db, &models.Company{}))
	assert.EqualValues(t, 1, count(t, db, &models.Skill{}))
	assert.EqualValues(t, 2, count(t, db, &models.HasSkill{}))
	assert.EqualValues(t, 2, count(t, db, &models.WorkedAt{}))
}

func TestUpsertCandidateGraph_WorkedAtMergesOnAllAttributes(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)

	graph := &CandidateGraph{
		Candidate: models.Candidate{TalentID: "t-1", FullName: "Grace"},
		Experience: []models.WorkedAt{
			{CompanyName: "Acme", Position: "Engineer", Duration: "2019"},
			{CompanyName: "Acme", Position: "Engineer", Duration: "2019"},
			{CompanyName: "Acme", Position: "Senior Engineer", Duration: "2020"},
		},
	}
	_, err := repo.UpsertCandidateGraph(context.Background(), graph)
	require.NoError(t, err)

	assert.EqualValues(t, 2, count(t, db, &models.WorkedAt{}))
	assert.EqualValues(t, 1, count(t, db, &models.Company{}))
}

func TestUpsertCandidateGraph_LastWriteWinsOnFullName(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertCandidateGraph(ctx, &CandidateGraph{Candidate: models.Candidate{TalentID: "t-1", FullName: "Old"}})
	require.NoError(t, err)
	_, err = repo.UpsertCandidateGraph(ctx, &CandidateGraph{Candidate: models.Candidate{TalentID: "t-1", FullName: "New"}})
	require.NoError(t, err)

	summary, err := repo.GetCandidateSummary(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "New", summary.FullName)
	assert.EqualValues(t, 1, count(t, db, &models.Candidate{}))
}

func TestUpsertCandidateGraph_SkipsFailingSubEntity(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)

	graph := &CandidateGraph{
		Candidate: models.Candidate{TalentID: "t-1", FullName: "Linus"},
		Experience: []models.WorkedAt{
			{CompanyName: "", Position: "Ghost"},
			{CompanyName: "Acme", Position: "Engineer"},
		},
		Skills: []string{"C"},
	}
	report, err := repo.UpsertCandidateGraph(context.Background(), graph)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "WORKED_AT", report.Skipped[0].Kind)
	assert.EqualValues(t, 1, count(t, db, &models.WorkedAt{}))
	assert.EqualValues(t, 1, count(t, db, &models.HasSkill{}))
}

func TestUpsertCandidateGraph_RollsBackRejectedInsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)

	require.NoError(t, db.Exec(`CREATE TRIGGER reject_bad_skill BEFORE INSERT ON has_skills
		WHEN NEW.skill = 'BAD'
		BEGIN SELECT RAISE(ABORT, 'skill rejected'); END`).Error)

	graph := &CandidateGraph{
		Candidate: models.Candidate{TalentID: "t-1", FullName: "Grace"},
		Skills:    []string{"COBOL", "BAD", "Compilers"},
	}
	report, err := repo.UpsertCandidateGraph(context.Background(), graph)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "HAS_SKILLS", report.Skipped[0].Kind)
	assert.Equal(t, "BAD", report.Skipped[0].Key)
	assert.Contains(t, report.Skipped[0].Error, "skill rejected")

	var skills []string
	require.NoError(t, db.Model(&models.HasSkill{}).Order("skill").Pluck("skill", &skills).Error)
	assert.Equal(t, []string{"COBOL", "Compilers"}, skills)

	var nodes []string
	require.NoError(t, db.Model(&models.Skill{}).Order("skill").Pluck("skill", &nodes).Error)
	assert.Equal(t, []string{"COBOL", "Compilers"}, nodes, "node merged inside the failed step is rolled back")
	assert.EqualValues(t, 1, count(t, db, &models.Candidate{}))
}

func TestUpsertCandidateGraph_FatalFailureWritesNothing(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)

	require.NoError(t, db.Exec(`CREATE TRIGGER abort_candidate BEFORE INSERT ON has_skills
		WHEN NEW.skill = 'FATAL'
		BEGIN SELECT RAISE(ROLLBACK, 'transaction aborted'); END`).Error)

	graph := sampleGraph("t-1", "Ada")
	graph.Skills = append(graph.Skills, "FATAL")

	_, err := repo.UpsertCandidateGraph(context.Background(), graph)
	require.Error(t, err)

	assert.EqualValues(t, 0, count(t, db, &models.Candidate{}))
	assert.EqualValues(t, 0, count(t, db, &models.WorkedAt{}))
	assert.EqualValues(t, 0, count(t, db, &models.Company{}))
	assert.EqualValues(t, 0, count(t, db, &models.HasProgrammingLanguage{}))
	assert.EqualValues(t, 0, count(t, db, &models.HasFramework{}))
	assert.EqualValues(t, 0, count(t, db, &models.HasSkill{}))
	assert.EqualValues(t, 0, count(t, db, &models.Skill{}))

	report, err := repo.UpsertCandidateGraph(context.Background(), sampleGraph("t-1", "Ada"))
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	assert.EqualValues(t, 2, count(t, db, &models.WorkedAt{}))
}

func TestGetCandidateSummary(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertCandidateGraph(ctx, sampleGraph("t-1", "Ada"))
	require.NoError(t, err)

	summary, err := repo.GetCandidateSummary(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, summary.Companies)
	assert.Equal(t, []string{"Go", "Python"}, summary.ProgrammingLanguages)
	assert.Equal(t, []string{"Fiber"}, summary.Frameworks)
	assert.Equal(t, []string{"Kubernetes", "PostgreSQL"}, summary.Skills)
	assert.Len(t, summary.Experience, 2)

	_, err = repo.GetCandidateSummary(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCandidate(t *testing.T) {
	db := newTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	_, err := repo.UpsertCandidateGraph(ctx, sampleGraph("t-1", "Ada"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCandidate(ctx, "t-1"))
	assert.EqualValues(t, 0, count(t, db, &models.Candidate{}))
	assert.EqualValues(t, 0, count(t, db, &models.HasSkill{}))
	assert.EqualValues(t, 2, count(t, db, &models.Company{}), "shared nodes stay")

	assert.ErrorIs(t, repo.DeleteCandidate(ctx, "t-1"), ErrNotFound)
}

func TestJobDescriptionRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobDescriptionRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"jd-1", "jd-2", "jd-3"} {
		require.NoError(t, repo.Upsert(ctx, &models.JobDescription{
			JDID:      id,
			Type:      "file",
			JD:        `{"title":"Engineer"}`,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	t.Run("list newest first", func(t *testing.T) {
		jds, err := repo.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, jds, 2)
		assert.Equal(t, "jd-3", jds[0].JDID)
		assert.Equal(t, "jd-2", jds[1].JDID)
	})

	t.Run("delete unknown leaves store intact", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, "nope"), ErrNotFound)
		assert.EqualValues(t, 3, count(t, db, &models.JobDescription{}))
	})

	t.Run("delete known removes exactly one", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "jd-2"))
		assert.EqualValues(t, 2, count(t, db, &models.JobDescription{}))

		_, err := repo.FindByID(ctx, "jd-2")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMatchingResultRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewMatchingResultRepository(db)
	ctx := context.Background()

	score := 3.0
	require.NoError(t, repo.Save(ctx, []models.MatchingResult{
		{TalentID: "t-1", JDID: "jd-1", FullName: "Ada", SimilarityScore: 0.9, QualificationScore: &score, ResultJSON: datatypes.JSON(`{"totalScore":3}`)},
		{TalentID: "t-2", JDID: "jd-1", FullName: "Bob", SimilarityScore: 0.7, ResultJSON: datatypes.JSON(`{}`)},
		{TalentID: "t-1", JDID: "jd-2", FullName: "Ada", SimilarityScore: 0.5, ResultJSON: datatypes.JSON(`{}`)},
	}))

	time.Sleep(5 * time.Millisecond)
	updated := 5.0
	require.NoError(t, repo.Upsert(ctx, &models.MatchingResult{
		TalentID: "t-2", JDID: "jd-1", FullName: "Bob", SimilarityScore: 0.8,
		QualificationScore: &updated, ResultJSON: datatypes.JSON(`{"totalScore":5}`),
	}))

	results, err := repo.Load(ctx, "jd-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "t-2", results[0].TalentID)
	require.NotNil(t, results[0].QualificationScore)
	assert.Equal(t, 5.0, *results[0].QualificationScore)
	assert.JSONEq(t, `{"totalScore":5}`, string(results[0].ResultJSON))

	all, err := repo.Load(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIngestionJobRepository_Claim(t *testing.T) {
	db := newTestDB(t)
	repo := NewIngestionJobRepository(db)
	ctx := context.Background()

	job := &models.IngestionJob{TalentID: "t-1", OriginalFilename: "cv.pdf"}
	require.NoError(t, repo.Create(ctx, job))

	queued, err := repo.FindQueued(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	ok, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	require.NoError(t, repo.MarkCompleted(ctx, job.ID, "Ada"))
	stored, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.FullName)
	assert.Equal(t, "Ada", *stored.FullName)
}

func TestIngestionJobRepository_RequeueStale(t *testing.T) {
	tests := []struct {
		name      string
		claimedAt time.Duration
		want      models.IngestionStatus
		requeued  int64
	}{
		{name: "stuck job is requeued", claimedAt: -time.Hour, want: models.StatusQueued, requeued: 1},
		{name: "running job is left alone", claimedAt: 0, want: models.StatusProcessing, requeued: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			repo := NewIngestionJobRepository(db)
			ctx := context.Background()

			job := &models.IngestionJob{TalentID: "t-1", OriginalFilename: "cv.pdf"}
			require.NoError(t, repo.Create(ctx, job))
			ok, err := repo.Claim(ctx, job.ID)
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, db.Model(&models.IngestionJob{}).
				Where("id = ?", job.ID).
				UpdateColumn("updated_at", time.Now().Add(tt.claimedAt)).Error)

			n, err := repo.RequeueStale(ctx, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.requeued, n)

			stored, err := repo.FindByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}
