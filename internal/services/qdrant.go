package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

const (
	DocTypeResume = "resume"

	payloadTalentID  = "talent_id"
	payloadFullName  = "full_name"
	payloadDocType   = "doc_type"
	payloadText      = "text"
	payloadSource    = "source_file"
	payloadTimestamp = "processing_timestamp"
)

type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertCandidate(ctx context.Context, doc CandidateDocument, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
	GetResumeText(ctx context.Context, talentID string) (string, bool, error)
	ListCandidates(ctx context.Context, limit int) ([]CandidateDocument, error)
	DeleteCandidate(ctx context.Context, talentID string) error
}

// CandidateDocument is the payload stored with a candidate's embedding.
type CandidateDocument struct {
	TalentID            string `json:"talent_id"`
	FullName            string `json:"full_name"`
	SourceFile          string `json:"source_file"`
	Text                string `json:"text"`
	ProcessingTimestamp string `json:"processing_timestamp"`
}

type SearchResult struct {
	TalentID string
	FullName string
	Score    float32
	Text     string
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, vectorSize uint64, log *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if vectorSize == 0 {
		vectorSize = 768
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
		log:            log.With(zap.String("collection", collectionName)),
	}, nil
}

func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return storeErr("vector", "check collection", err)
	}

	if exists {
		q.log.Info("collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return storeErr("vector", "create collection", err)
	}

	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collectionName,
		FieldName:      payloadTalentID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return storeErr("vector", "create talent_id index", err)
	}

	q.log.Info("collection created", zap.Uint64("vector_size", q.vectorSize))
	return nil
}

// UpsertCandidate stores one point per candidate, keyed by talent_id, so
// re-ingesting replaces the earlier vector.
func (q *qdrantService) UpsertCandidate(ctx context.Context, doc CandidateDocument, embedding []float32) error {
	if doc.ProcessingTimestamp == "" {
		doc.ProcessingTimestamp = time.Now().UTC().Format(time.RFC3339)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(doc.TalentID),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			payloadTalentID:  doc.TalentID,
			payloadFullName:  doc.FullName,
			payloadDocType:   DocTypeResume,
			payloadSource:    doc.SourceFile,
			payloadText:      doc.Text,
			payloadTimestamp: doc.ProcessingTimestamp,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return storeErr("vector", "upsert", err)
	}
	return nil
}

// SearchSimilar returns hits in similarity-descending order.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         resumeFilter(),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, storeErr("vector", "query", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		talentID := payloadString(point.Payload, payloadTalentID)
		if talentID == "" {
			talentID = point.GetId().GetUuid()
		}
		results = append(results, SearchResult{
			TalentID: talentID,
			FullName: payloadString(point.Payload, payloadFullName),
			Score:    point.Score,
			Text:     payloadString(point.Payload, payloadText),
		})
	}
	return results, nil
}

// GetResumeText looks the stored résumé text up by talent_id.
func (q *qdrantService) GetResumeText(ctx context.Context, talentID string) (string, bool, error) {
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(payloadTalentID, talentID)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", false, storeErr("vector", "scroll", err)
	}
	if len(points) == 0 {
		return "", false, nil
	}

	text := payloadString(points[0].Payload, payloadText)
	return text, text != "", nil
}

func (q *qdrantService) ListCandidates(ctx context.Context, limit int) ([]CandidateDocument, error) {
	if limit <= 0 {
		limit = 1000
	}

	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName,
		Filter:         resumeFilter(),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, storeErr("vector", "scroll", err)
	}

	docs := make([]CandidateDocument, 0, len(points))
	for _, p := range points {
		docs = append(docs, CandidateDocument{
			TalentID:            payloadString(p.Payload, payloadTalentID),
			FullName:            payloadString(p.Payload, payloadFullName),
			SourceFile:          payloadString(p.Payload, payloadSource),
			Text:                payloadString(p.Payload, payloadText),
			ProcessingTimestamp: payloadString(p.Payload, payloadTimestamp),
		})
	}
	return docs, nil
}

func (q *qdrantService) DeleteCandidate(ctx context.Context, talentID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch(payloadTalentID, talentID)},
				},
			},
		},
	})
	if err != nil {
		return storeErr("vector", "delete", err)
	}
	return nil
}

func resumeFilter() *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadDocType, DocTypeResume)},
	}
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok && v != nil {
		return v.GetStringValue()
	}
	return ""
}
