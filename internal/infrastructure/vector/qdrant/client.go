package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/normanhq/norman/internal/core/domain"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// Client talks to one qdrant collection holding both retrieval
// modalities: a named dense vector and a named sparse vector per point.
// It returns engine-ordered lists only; fusion happens in the core.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) IndexChunks(ctx context.Context, law *domain.Law, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID: uuid.NewString(),
			Vector: map[string]any{
				denseVectorName:  vectors[i],
				sparseVectorName: encodeSparseDocument(chunk.EnrichedText, chunk.ArticleTitle),
			},
			Payload: map[string]any{
				"chunk_id":      chunk.ID,
				"law_id":        law.ID,
				"law_title":     chunk.LawTitle,
				"chapter_title": chunk.ChapterTitle,
				"article_num":   chunk.ArticleNum,
				"article_title": chunk.ArticleTitle,
				"paragraph_num": chunk.ParagraphNum,
				"category":      chunk.Category,
				"text":          chunk.Text,
				"enriched_text": chunk.EnrichedText,
			},
		})
	}

	reqBody := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.do(ctx, http.MethodPut, path, reqBody, nil, "upsert")
}

func (c *Client) SearchDense(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) (domain.RankedList, error) {
	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   denseVectorName,
			"vector": queryVector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	return c.search(ctx, reqBody, filter)
}

func (c *Client) SearchSparse(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) (domain.RankedList, error) {
	sparse := encodeSparseQuery(queryText)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   sparseVectorName,
			"vector": sparse,
		},
		"limit":        limit,
		"with_payload": true,
	}
	return c.search(ctx, reqBody, filter)
}

func (c *Client) search(ctx context.Context, reqBody map[string]any, filter domain.SearchFilter) (domain.RankedList, error) {
	if conditions := filterConditions(filter); len(conditions) > 0 {
		reqBody["filter"] = map[string]any{"must": conditions}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		candidates = append(candidates, domain.Candidate{
			ChunkID:      getStringPayload(r.Payload, "chunk_id"),
			LawID:        getStringPayload(r.Payload, "law_id"),
			LawTitle:     getStringPayload(r.Payload, "law_title"),
			ChapterTitle: getStringPayload(r.Payload, "chapter_title"),
			ArticleNum:   getStringPayload(r.Payload, "article_num"),
			ArticleTitle: getStringPayload(r.Payload, "article_title"),
			ParagraphNum: getStringPayload(r.Payload, "paragraph_num"),
			Category:     getStringPayload(r.Payload, "category"),
			Text:         getStringPayload(r.Payload, "text"),
			EnrichedText: getStringPayload(r.Payload, "enriched_text"),
			Path: domain.HighlightPath{
				Law:     getStringPayload(r.Payload, "law_title"),
				Chapter: getStringPayload(r.Payload, "chapter_title"),
				Article: getStringPayload(r.Payload, "article_title"),
			},
			Score: r.Score,
		})
	}
	return domain.NewRankedList(candidates), nil
}

func filterConditions(filter domain.SearchFilter) []map[string]any {
	conditions := make([]map[string]any, 0, 2)
	if filter.Category != "" {
		conditions = append(conditions, map[string]any{
			"key":   "category",
			"match": map[string]any{"value": filter.Category},
		})
	}
	if filter.LawID != "" {
		conditions = append(conditions, map[string]any{
			"key":   "law_id",
			"match": map[string]any{"value": filter.LawID},
		})
	}
	return conditions
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.do(ctx, http.MethodPut, path, reqBody, nil, "ensure collection")
	// 409 if the collection already exists (depends on version/config).
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.code == http.StatusConflict {
		err = nil
	}
	if err != nil {
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

type httpStatusError struct {
	operation string
	code      int
	status    string
	body      string
}

func (e *httpStatusError) Error() string {
	if strings.TrimSpace(e.body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, strings.TrimSpace(e.body))
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &httpStatusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      string(raw),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
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
