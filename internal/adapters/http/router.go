package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
	"github.com/normanhq/norman/internal/observability/metrics"
)

type Router struct {
	query     ports.LegalQueryService
	registrar ports.LawRegistrar
	laws      ports.LawReader
	metrics   *metrics.HTTPServerMetrics
	service   string

	// HealthChecks maps a collaborator name to its liveness probe; entries
	// show up in the /healthz response.
	HealthChecks map[string]func(context.Context) error
}

func NewRouter(
	query ports.LegalQueryService,
	registrar ports.LawRegistrar,
	laws ports.LawReader,
	m *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		query:     query,
		registrar: registrar,
		laws:      laws,
		metrics:   m,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/laws", rt.lawsCollection)
	mux.HandleFunc("/v1/laws/", rt.lawByID)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if len(rt.HealthChecks) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(rt.HealthChecks))
	for name, check := range rt.HealthChecks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "components": components})
}

type chatRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
	Category string `json:"category"`
	LawID    string `json:"law_id"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := rt.query.Answer(r.Context(), req.Question, req.TopK, domain.SearchFilter{
		Category: req.Category,
		LawID:    req.LawID,
	})
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordPipelineRun(
			rt.service,
			"/v1/chat",
			len(answer.Sources),
			answer.Rounds,
			answer.Rewrites,
			answer.Degraded,
			time.Duration(answer.ElapsedMS*float64(time.Millisecond)),
		)
		rt.metrics.RecordGrades(rt.service, answer.GradedRelevant, answer.GradedIrrelevant)
		rt.metrics.RecordRoute(rt.service, answer.Category)
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	candidates, err := rt.query.Search(r.Context(), req.Question, req.TopK, domain.SearchFilter{
		Category: req.Category,
		LawID:    req.LawID,
	})
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordPipelineRun(rt.service, "/v1/search", len(candidates), 0, 0, false, time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": candidates})
}

func (rt *Router) lawsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.registerLaw(w, r)
	case http.MethodGet:
		rt.listLaws(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) registerLaw(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	law, err := rt.registrar.Register(
		r.Context(),
		r.FormValue("law_id"),
		r.FormValue("title"),
		r.FormValue("category"),
		file,
	)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, law)
}

func (rt *Router) listLaws(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	laws, err := rt.laws.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"laws": laws})
}

func (rt *Router) lawByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/laws/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "law id is required")
		return
	}

	law, err := rt.laws.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, law)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
