package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/talent-graph/internal/models"
	"alfredoptarigan/talent-graph/internal/services"
)

type MatchHandler struct {
	matcher services.MatcherService
}

func NewMatchHandler(matcher services.MatcherService) *MatchHandler {
	return &MatchHandler{matcher: matcher}
}

// HandleMatch handles POST /matches
func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	var req models.MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request payload")
	}

	question, err := questionText(req.Question)
	if err != nil {
		return badRequest(err.Error())
	}

	outcomes, err := h.matcher.Match(c.UserContext(), services.MatchRequest{
		Query:           question,
		NumberCandidate: req.NumberCandidate,
		JobDescription:  req.JobDescription,
		JDID:            req.JDID,
	})
	if err != nil {
		return err
	}

	items := make([]models.MatchResponseItem, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, models.MatchResponseItem{
			TalentID:           o.Match.Summary.TalentID,
			FullName:           o.Match.Summary.FullName,
			SimilarityScore:    o.Match.SimilarityScore,
			QualificationScore: o.Match.QualificationScore,
			ScoringDetails:     o.ScoringDetails,
			Summary:            o.Match.Summary,
			Error:              o.Error,
		})
	}

	return c.JSON(fiber.Map{
		"jd_id":      req.JDID,
		"candidates": items,
	})
}

// HandleResults handles GET /matches?jd_id=
func (h *MatchHandler) HandleResults(c *fiber.Ctx) error {
	results, err := h.matcher.Results(c.UserContext(), c.Query("jd_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":   len(results),
		"results": results,
	})
}

// questionText accepts a JSON string or any other JSON value. Non-string
// values are used as their compact JSON text.
func questionText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid question: %w", err)
		}
		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("invalid question: %w", err)
	}
	return buf.String(), nil
}
