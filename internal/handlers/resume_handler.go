package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/services"
)

const (
	uploadQueued = "queued"
	uploadFailed = "failed"
)

type ResumeHandler struct {
	jobRepo   repositories.IngestionJobRepository
	graphRepo repositories.GraphRepository
	vectors   services.QdrantService
	storage   services.StorageService
	worker    services.Worker
	maxFiles  int
	log       *zap.Logger
}

func NewResumeHandler(
	jobRepo repositories.IngestionJobRepository,
	graphRepo repositories.GraphRepository,
	vectors services.QdrantService,
	storage services.StorageService,
	worker services.Worker,
	maxFiles int,
	log *zap.Logger,
) *ResumeHandler {
	return &ResumeHandler{
		jobRepo:   jobRepo,
		graphRepo: graphRepo,
		vectors:   vectors,
		storage:   storage,
		worker:    worker,
		maxFiles:  maxFiles,
		log:       log.With(zap.String("component", "resume_handler")),
	}
}

// HandleUpload handles POST /resumes. Each file gets its own talent_id and
// ingestion job; a bad file does not fail the others.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest("failed to parse multipart form")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return badRequest("no files uploaded, use the 'files' field")
	}
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		return badRequest(fmt.Sprintf("too many files: %d, max %d", len(files), h.maxFiles))
	}

	results := make([]models.UploadResult, 0, len(files))
	for _, file := range files {
		result := models.UploadResult{Filename: file.Filename}

		filePath, err := h.storage.SaveFile(file, "resume")
		if err != nil {
			result.Status = uploadFailed
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		job := &models.IngestionJob{
			ID:               uuid.New(),
			TalentID:         uuid.New().String(),
			OriginalFilename: file.Filename,
			FilePath:         filePath,
			Status:           models.StatusQueued,
		}
		if err := h.jobRepo.Create(c.UserContext(), job); err != nil {
			if delErr := h.storage.DeleteFile(filePath); delErr != nil {
				h.log.Warn("failed to clean up upload", zap.String("path", filePath), zap.Error(delErr))
			}
			result.Status = uploadFailed
			result.Error = "failed to create ingestion job"
			results = append(results, result)
			continue
		}

		h.worker.EnqueueJob(job.ID)

		result.Status = uploadQueued
		result.JobID = job.ID.String()
		result.TalentID = job.TalentID
		results = append(results, result)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"results": results,
	})
}

func (h *ResumeHandler) HandleIngestionStatus(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest("invalid ingestion id format")
	}

	job, err := h.jobRepo.FindByID(c.UserContext(), jobID)
	if err != nil {
		return err
	}

	return c.JSON(models.IngestionStatusResponse{
		ID:           job.ID.String(),
		TalentID:     job.TalentID,
		Status:       string(job.Status),
		FullName:     job.FullName,
		ErrorMessage: job.ErrorMessage,
	})
}

func (h *ResumeHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.vectors.ListCandidates(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":   len(docs),
		"resumes": docs,
	})
}

// HandleGet returns the stored résumé text and graph summary. A candidate
// present in only one store is still returned.
func (h *ResumeHandler) HandleGet(c *fiber.Ctx) error {
	ctx := c.UserContext()
	talentID := c.Params("talentId")

	text, found, err := h.vectors.GetResumeText(ctx, talentID)
	if err != nil {
		return err
	}

	summary, err := h.graphRepo.GetCandidateSummary(ctx, talentID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		if !found {
			return fmt.Errorf("candidate %s: %w", talentID, services.ErrNotFound)
		}
		summary = &models.CandidateSummary{TalentID: talentID, GraphMissing: true}
	case err != nil:
		return err
	}

	return c.JSON(models.ResumeResponse{
		TalentID: talentID,
		FullName: summary.FullName,
		Text:     text,
		Summary:  *summary,
	})
}

// HandleDelete removes the candidate's vector points and graph node. Shared
// Company and skill nodes stay.
func (h *ResumeHandler) HandleDelete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	talentID := c.Params("talentId")

	_, inVectors, err := h.vectors.GetResumeText(ctx, talentID)
	if err != nil {
		return err
	}

	if err := h.vectors.DeleteCandidate(ctx, talentID); err != nil {
		return err
	}

	err = h.graphRepo.DeleteCandidate(ctx, talentID)
	inGraph := err == nil
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if !inGraph && !inVectors {
		return fmt.Errorf("candidate %s: %w", talentID, services.ErrNotFound)
	}

	h.log.Info("candidate deleted", logger.Candidate(talentID), zap.Bool("graph", inGraph), zap.Bool("vector", inVectors))
	return c.JSON(fiber.Map{
		"talent_id": talentID,
		"deleted":   true,
	})
}
