package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/normanhq/norman/internal/core/domain"
)

func newLawMultipartRequest(t *testing.T, fields map[string]string, fileBody string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s) error = %v", key, err)
		}
	}
	part, err := writer.CreateFormFile("file", "law.xml")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(fileBody)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/laws", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(queryFake{}, registrarFake{}, lawsFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestRegisterLawSuccess(t *testing.T) {
	handler := newTestHandler(queryFake{}, registrarFake{}, lawsFake{})

	req := newLawMultipartRequest(t, map[string]string{
		"law_id":   "322AC0000000049",
		"title":    "労働基準法",
		"category": "労働",
	}, "<Law><LawBody/></Law>")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}

	var law domain.Law
	if err := json.NewDecoder(res.Body).Decode(&law); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if law.ID != "322AC0000000049" || law.Title != "労働基準法" || law.Status != domain.LawStatusRegistered {
		t.Fatalf("unexpected law: %+v", law)
	}
}

func TestRegisterLawMissingMultipartField(t *testing.T) {
	handler := newTestHandler(queryFake{}, registrarFake{}, lawsFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/laws", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListLawsReturnsCollection(t *testing.T) {
	handler := newTestHandler(queryFake{}, registrarFake{}, lawsFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/laws?limit=10", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body struct {
		Laws []domain.Law `json:"laws"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Laws) != 1 || body.Laws[0].ID != "322AC0000000049" {
		t.Fatalf("unexpected laws: %+v", body.Laws)
	}
}

func TestHealthzReportsComponentFailures(t *testing.T) {
	router := NewRouter(queryFake{}, registrarFake{}, lawsFake{}, nil, "api")
	router.HealthChecks = map[string]func(context.Context) error{
		"postgres": func(context.Context) error { return nil },
		"neo4j":    func(context.Context) error { return errors.New("connection refused") },
	}
	handler := router.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}

	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "degraded" || body.Components["postgres"] != "ok" {
		t.Fatalf("unexpected health payload: %+v", body)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	handler := newTestHandler(queryFake{}, registrarFake{}, lawsFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echo, got %q", got)
	}
}
