package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"alfredoptarigan/talent-graph/internal/config"
	"alfredoptarigan/talent-graph/internal/logger"
)

const maxEmbeddingChars = 40000

// GenerationRequest overrides the configured defaults where set. A nil
// Temperature uses the default; zero is a valid temperature.
type GenerationRequest struct {
	Prompt        string
	SystemMessage string
	MaxTokens     int32
	Temperature   *float32
}

type TextGenerator interface {
	Invoke(ctx context.Context, req GenerationRequest) (string, error)
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type GeminiService interface {
	TextGenerator
	Embedder
}

type geminiService struct {
	client      *genai.Client
	modelName   string
	embedModel  string
	vectorSize  int
	maxTokens   int32
	temperature float32
	limiter     *rate.Limiter
	log         *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg *config.Config, log *zap.Logger) (GeminiService, error) {
	apiKey := strings.TrimSpace(cfg.Gemini.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	limit := rate.Inf
	if cfg.Generation.RateLimit > 0 {
		limit = rate.Limit(cfg.Generation.RateLimit)
	}

	return &geminiService{
		client:      client,
		modelName:   cfg.Gemini.Model,
		embedModel:  cfg.Gemini.EmbedModel,
		vectorSize:  int(cfg.Qdrant.VectorSize),
		maxTokens:   cfg.Generation.MaxTokens,
		temperature: cfg.Generation.Temperature,
		limiter:     rate.NewLimiter(limit, 1),
		log:         logger.WithFields(log, logger.CommonFields("gemini", cfg.Gemini.Model)...),
	}, nil
}

// Invoke sends one generation request and returns the response text.
func (g *geminiService) Invoke(ctx context.Context, req GenerationRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	genCfg := g.contentConfig(req)

	g.log.Debug("generation request",
		zap.Int("prompt_chars", len(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, 200)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyGenerationResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyGenerationResponse
	}

	g.log.Debug("generation response",
		zap.Int("response_chars", len(text)),
		zap.String("response_preview", logger.TruncateForLog(text, 200)),
	)

	return text, nil
}

func (g *geminiService) contentConfig(req GenerationRequest) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	temperature := g.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
	}
	if sys := strings.TrimSpace(req.SystemMessage); sys != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}
	return genCfg
}

func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = truncateUTF8(text, maxEmbeddingChars)

	var embedCfg *genai.EmbedContentConfig
	if g.vectorSize > 0 {
		embedCfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(g.vectorSize))}
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), embedCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding result")
	}

	values := result.Embeddings[0].Values
	if g.vectorSize > 0 && len(values) != g.vectorSize {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(values), g.vectorSize)
	}
	return values, nil
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
