package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kazaneza/openchat/internal/core/domain"
)

// Client reads the passage collection maintained by the ingestion pipeline.
// It never creates or writes points.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(ctx context.Context, organizationID string, queryVector []float32, topK int) ([]domain.ScoredPassage, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":        queryVector,
		"using":        "dense",
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
		"filter":       buildOrganizationFilter(organizationID),
	}
	return c.queryPoints(ctx, "search", reqBody)
}

func (c *Client) KeywordSearch(ctx context.Context, organizationID string, terms []string, topK int) ([]domain.ScoredPassage, error) {
	sparse := encodeSparseQuery(strings.Join(terms, " "))
	if len(sparse.Indices) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":        sparse,
		"using":        "sparse",
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
		"filter":       buildOrganizationFilter(organizationID),
	}
	return c.queryPoints(ctx, "keyword_search", reqBody)
}

func (c *Client) queryPoints(ctx context.Context, operation string, reqBody map[string]any) ([]domain.ScoredPassage, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(excerpt)); msg != "" {
			return nil, fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
		}
		return nil, fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
	}

	points, err := decodeQueryPoints(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}

	out := make([]domain.ScoredPassage, 0, len(points))
	for _, p := range points {
		out = append(out, domain.ScoredPassage{
			Passage: passageFromPoint(p),
			Score:   p.Score,
		})
	}
	return out, nil
}

func buildOrganizationFilter(organizationID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key": "organization_id",
				"match": map[string]any{
					"value": organizationID,
				},
			},
		},
	}
}

type queryPoint struct {
	Score   float64                    `json:"score"`
	Payload map[string]any             `json:"payload"`
	Vector  map[string]json.RawMessage `json:"vector"`
}

func decodeQueryPoints(r io.Reader) ([]queryPoint, error) {
	var response struct {
		Result struct {
			Points []queryPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(r).Decode(&response); err != nil {
		return nil, err
	}
	return response.Result.Points, nil
}

func passageFromPoint(p queryPoint) domain.Passage {
	passage := domain.Passage{
		ID:             getStringPayload(p.Payload, "passage_id"),
		OrganizationID: getStringPayload(p.Payload, "organization_id"),
		DocumentID:     getStringPayload(p.Payload, "document_id"),
		DocumentName:   getStringPayload(p.Payload, "document_name"),
		PageNumber:     getIntPayload(p.Payload, "page_number"),
		Text:           getStringPayload(p.Payload, "text"),
		TokenCount:     getIntPayload(p.Payload, "token_count"),
	}
	if raw, ok := p.Vector["dense"]; ok {
		var dense []float32
		if err := json.Unmarshal(raw, &dense); err == nil {
			passage.Embedding = dense
		}
	}
	return passage
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch typed := v.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	default:
		return 0
	}
}
