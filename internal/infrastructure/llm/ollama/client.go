package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, genModel, embedModel string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

// ExpandQuery asks the model for the Japanese translation of a Vietnamese
// legal question plus keyword and search-query expansions, as one JSON
// object.
func (c *Client) ExpandQuery(ctx context.Context, question string, variantCount int) (domain.Expansion, error) {
	raw, err := c.generateJSON(ctx, "expand_query", buildExpansionPrompt(question, variantCount))
	if err != nil {
		return domain.Expansion{}, err
	}

	var exp domain.Expansion
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &exp); err != nil {
		return domain.Expansion{}, fmt.Errorf("parse expansion json: %w", err)
	}
	if strings.TrimSpace(exp.Translated) == "" {
		return domain.Expansion{}, fmt.Errorf("expansion missing translated query")
	}
	return exp, nil
}

// GradePassage returns the model's one-word relevance judgment. Output
// that is not exactly one of the two grades is passed through for the
// caller to reject.
func (c *Client) GradePassage(ctx context.Context, question, passage string) (domain.Grade, error) {
	raw, err := c.generateText(ctx, "grade_passage", buildGradePrompt(question, passage))
	if err != nil {
		return "", err
	}

	verdict := strings.ToLower(strings.TrimSpace(raw))
	verdict = strings.Trim(verdict, `"'.`)
	switch verdict {
	case string(domain.GradeRelevant):
		return domain.GradeRelevant, nil
	case string(domain.GradeNotRelevant), "not relevant":
		return domain.GradeNotRelevant, nil
	default:
		return domain.Grade(verdict), nil
	}
}

func (c *Client) RewriteQuery(ctx context.Context, question string, failedVariants []string) (string, error) {
	raw, err := c.generateText(ctx, "rewrite_query", buildRewritePrompt(question, failedVariants))
	if err != nil {
		return "", err
	}
	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if rewritten == "" {
		return "", fmt.Errorf("empty rewrite result")
	}
	return rewritten, nil
}

// ScorePair asks for a single relevance number in [0,1] for one
// question/passage pair.
func (c *Client) ScorePair(ctx context.Context, question, passage string) (float64, error) {
	raw, err := c.generateText(ctx, "score_pair", buildScorePrompt(question, passage))
	if err != nil {
		return 0, err
	}

	score, err := strconv.ParseFloat(firstNumericToken(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse relevance score %q: %w", raw, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

func (c *Client) GenerateAnswer(ctx context.Context, question string, contextBlocks []string) (string, error) {
	return c.generateText(ctx, "generate_answer", buildAnswerPrompt(question, contextBlocks))
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}
	return c.generate(ctx, operation, reqBody)
}

func (c *Client) generateText(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, operation, reqBody)
}

func (c *Client) generate(ctx context.Context, operation string, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, operation); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// firstNumericToken pulls the leading number out of model output like
// "0.85" or "Score: 0.85".
func firstNumericToken(raw string) string {
	start := -1
	for i, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return raw[start:i]
		}
	}
	if start >= 0 {
		return raw[start:]
	}
	return strings.TrimSpace(raw)
}
