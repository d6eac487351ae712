package httpadapter

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/observability/metrics"
)

func scrapeMetrics(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("metrics scrape returned %d", res.Code)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestChatRecordsPipelineMetrics(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("api")
	handler := NewRouter(queryFake{
		answer: &domain.Answer{
			Text: "ok",
			Sources: []domain.Source{
				{LawTitle: "労働基準法", Article: "第三十二条"},
			},
			Category:         "労働",
			Rounds:           2,
			Rewrites:         1,
			GradedRelevant:   2,
			GradedIrrelevant: 1,
			ElapsedMS:        120,
		},
	}, registrarFake{}, lawsFake{}, m, "api").Handler()

	res := postJSONRequest(t, handler, "/v1/chat", map[string]any{"question": "残業の上限は？"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	body := scrapeMetrics(t, handler)
	for _, series := range []string{
		`norman_rag_requests_total{endpoint="/v1/chat",service="api"} 1`,
		`norman_rag_retrieval_hit_total{endpoint="/v1/chat",service="api"} 1`,
		`norman_rag_rewrites_total{endpoint="/v1/chat",service="api"} 1`,
		`norman_rag_grade_total{service="api",verdict="relevant"} 2`,
		`norman_rag_grade_total{service="api",verdict="not_relevant"} 1`,
		`norman_rag_route_total{route="労働",service="api"} 1`,
	} {
		if !strings.Contains(body, series) {
			t.Fatalf("missing series %q in scrape:\n%s", series, body)
		}
	}
}

func TestChatWithoutSourcesCountsNoContext(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("api")
	handler := NewRouter(queryFake{}, registrarFake{}, lawsFake{}, m, "api").Handler()

	res := postJSONRequest(t, handler, "/v1/chat", map[string]any{"question": "残業の上限は？"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	body := scrapeMetrics(t, handler)
	if !strings.Contains(body, `norman_rag_no_context_total{endpoint="/v1/chat",service="api"} 1`) {
		t.Fatalf("unsourced answer not counted:\n%s", body)
	}
	if !strings.Contains(body, `norman_rag_route_total{route="unknown",service="api"} 1`) {
		t.Fatalf("missing route fallback:\n%s", body)
	}
}

func TestSearchRecordsPipelineMetrics(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("api")
	handler := NewRouter(queryFake{}, registrarFake{}, lawsFake{}, m, "api").Handler()

	res := postJSONRequest(t, handler, "/v1/search", map[string]any{"question": "残業の上限は？"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	body := scrapeMetrics(t, handler)
	for _, series := range []string{
		`norman_rag_requests_total{endpoint="/v1/search",service="api"} 1`,
		`norman_rag_retrieval_hit_total{endpoint="/v1/search",service="api"} 1`,
	} {
		if !strings.Contains(body, series) {
			t.Fatalf("missing series %q in scrape:\n%s", series, body)
		}
	}
}
