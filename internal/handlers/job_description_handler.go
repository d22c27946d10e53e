package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/talent-graph/internal/logger"
	"alfredoptarigan/talent-graph/internal/repositories"
	"alfredoptarigan/talent-graph/internal/services"
)

type JobDescriptionHandler struct {
	jdRepo    repositories.JobDescriptionRepository
	ingestion services.IngestionService
	storage   services.StorageService
	log       *zap.Logger
}

func NewJobDescriptionHandler(
	jdRepo repositories.JobDescriptionRepository,
	ingestion services.IngestionService,
	storage services.StorageService,
	log *zap.Logger,
) *JobDescriptionHandler {
	return &JobDescriptionHandler{
		jdRepo:    jdRepo,
		ingestion: ingestion,
		storage:   storage,
		log:       log.With(zap.String("component", "job_description_handler")),
	}
}

// HandleCreate handles POST /job-descriptions with either a 'file' upload or
// a 'text' form field.
func (h *JobDescriptionHandler) HandleCreate(c *fiber.Ctx) error {
	source := services.JobSource{URL: strings.TrimSpace(c.FormValue("url"))}
	category := strings.TrimSpace(c.FormValue("type"))
	text := c.FormValue("text")

	if file, err := c.FormFile("file"); err == nil {
		filePath, err := h.storage.SaveFile(file, "jd")
		if err != nil {
			return badRequest(err.Error())
		}
		source.FilePath = filePath
		if category == "" {
			category = "file"
		}
	}

	if source.FilePath == "" && strings.TrimSpace(text) == "" {
		return badRequest("provide a 'file' or 'text' field")
	}
	if category == "" {
		category = "text"
	}

	jd, err := h.ingestion.IngestJobText(c.UserContext(), source, category, text)
	if err != nil {
		if source.FilePath != "" {
			if delErr := h.storage.DeleteFile(source.FilePath); delErr != nil {
				h.log.Warn("failed to clean up upload", zap.String("path", source.FilePath), zap.Error(delErr))
			}
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(jd)
}

func (h *JobDescriptionHandler) HandleList(c *fiber.Ctx) error {
	jds, err := h.jdRepo.List(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":            len(jds),
		"job_descriptions": jds,
	})
}

func (h *JobDescriptionHandler) HandleDelete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	jdID := c.Params("jdId")

	jd, err := h.jdRepo.FindByID(ctx, jdID)
	if err != nil {
		return err
	}
	if err := h.jdRepo.Delete(ctx, jdID); err != nil {
		return err
	}

	if jd.FilePath != "" {
		if err := h.storage.DeleteFile(jd.FilePath); err != nil {
			h.log.Warn("failed to delete job description file", logger.JobDescription(jdID), zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"jd_id":   jdID,
		"deleted": true,
	})
}
