package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/normanhq/norman/internal/core/domain"
)

func testLawChunks() (*domain.Law, []domain.Chunk, [][]float32) {
	law := &domain.Law{ID: "322AC0000000049", Title: "労働基準法"}
	chunks := []domain.Chunk{
		{ID: "c1", LawID: law.ID, LawTitle: law.Title, ArticleNum: "32", ArticleTitle: "第三十二条", Text: "t1", EnrichedText: "e1"},
		{ID: "c2", LawID: law.ID, LawTitle: law.Title, ArticleNum: "33", ArticleTitle: "第三十三条", Text: "t2", EnrichedText: "e2"},
	}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	return law, chunks, vectors
}

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/laws":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/laws/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "laws")
	law, chunks, vectors := testLawChunks()

	if err := client.IndexChunks(context.Background(), law, chunks, vectors); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), law, chunks, vectors); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestIndexChunksWritesBothModalities(t *testing.T) {
	var upsertBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/laws":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/laws/points":
			if err := json.NewDecoder(r.Body).Decode(&upsertBody); err != nil {
				t.Fatalf("decode upsert body: %v", err)
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "laws")
	law, chunks, vectors := testLawChunks()
	if err := client.IndexChunks(context.Background(), law, chunks, vectors); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	points, _ := upsertBody["points"].([]any)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	first, _ := points[0].(map[string]any)
	vector, _ := first["vector"].(map[string]any)
	if vector[denseVectorName] == nil || vector[sparseVectorName] == nil {
		t.Fatalf("point must carry both named vectors, got %v", vector)
	}
	payload, _ := first["payload"].(map[string]any)
	if payload["law_title"] != "労働基準法" || payload["article_num"] != "32" {
		t.Fatalf("statute payload malformed: %v", payload)
	}
}

func TestSearchDenseDecodesCandidates(t *testing.T) {
	var searchBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/laws/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&searchBody); err != nil {
			t.Fatalf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.92,"payload":{"chunk_id":"c1","law_id":"322AC0000000049","law_title":"労働基準法","article_num":"32","article_title":"第三十二条","text":"t1","enriched_text":"e1"}},
			{"score":0.81,"payload":{"chunk_id":"c2","law_id":"322AC0000000049","law_title":"労働基準法","article_num":"33","article_title":"第三十三条","text":"t2","enriched_text":"e2"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "laws")
	list, err := client.SearchDense(context.Background(), []float32{0.1, 0.2}, 10, domain.SearchFilter{Category: "労働"})
	if err != nil {
		t.Fatalf("SearchDense() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].Rank != 1 || list[0].Candidate.ChunkID != "c1" {
		t.Fatalf("first entry must carry rank 1, got %+v", list[0])
	}
	if list[0].Candidate.Path.Law != "労働基準法" {
		t.Fatalf("highlight path not populated: %+v", list[0].Candidate.Path)
	}
	if searchBody["filter"] == nil {
		t.Fatal("category filter must be forwarded")
	}
}

func TestSearchSparseSkipsEmptyQuery(t *testing.T) {
	client := New("http://unused", "laws")
	list, err := client.SearchSparse(context.Background(), "___", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchSparse() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list for unencodable query, got %d", len(list))
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/laws" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "laws")
	law, chunks, vectors := testLawChunks()
	err := client.IndexChunks(context.Background(), law, chunks[:1], vectors[:1])
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestEnsureCollectionTreatsConflictAsExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/laws":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/laws/points":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "laws")
	law, chunks, vectors := testLawChunks()
	if err := client.IndexChunks(context.Background(), law, chunks, vectors); err != nil {
		t.Fatalf("conflict must mean collection exists, got %v", err)
	}
}
