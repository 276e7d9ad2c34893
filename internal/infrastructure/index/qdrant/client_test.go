package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchFiltersByOrganizationAndDecodesPoints(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/passages/points/query" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"result": {
				"points": [
					{
						"score": 0.92,
						"payload": {
							"passage_id": "p-1",
							"organization_id": "org-1",
							"document_id": "doc-1",
							"document_name": "handbook.pdf",
							"page_number": 3,
							"text": "vacation policy details",
							"token_count": 42
						},
						"vector": {"dense": [0.1, 0.2]}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	got, err := client.Search(context.Background(), "org-1", []float32{0.5, 0.5}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got))
	}
	p := got[0]
	if p.Score != 0.92 || p.Passage.ID != "p-1" || p.Passage.DocumentName != "handbook.pdf" || p.Passage.PageNumber != 3 {
		t.Fatalf("unexpected decoded passage: %+v", p)
	}
	if len(p.Passage.Embedding) != 2 {
		t.Fatalf("expected dense vector on decoded passage, got %v", p.Passage.Embedding)
	}

	if captured["using"] != "dense" {
		t.Fatalf("expected dense leg, got %v", captured["using"])
	}
	rawFilter, _ := json.Marshal(captured["filter"])
	if !strings.Contains(string(rawFilter), `"organization_id"`) || !strings.Contains(string(rawFilter), `"org-1"`) {
		t.Fatalf("expected organization filter, got %s", rawFilter)
	}
}

func TestKeywordSearchSendsSparseQuery(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":{"points":[]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	got, err := client.KeywordSearch(context.Background(), "org-1", []string{"vacation", "policy"}, 20)
	if err != nil {
		t.Fatalf("KeywordSearch() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no points, got %d", len(got))
	}

	if captured["using"] != "sparse" {
		t.Fatalf("expected sparse leg, got %v", captured["using"])
	}
	query, ok := captured["query"].(map[string]any)
	if !ok {
		t.Fatalf("expected sparse query object, got %T", captured["query"])
	}
	indices, _ := query["indices"].([]any)
	values, _ := query["values"].([]any)
	if len(indices) != 2 || len(values) != 2 {
		t.Fatalf("expected 2 sparse terms, got indices=%v values=%v", indices, values)
	}
}

func TestKeywordSearchSkipsEmptyTerms(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"result":{"points":[]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	got, err := client.KeywordSearch(context.Background(), "org-1", nil, 20)
	if err != nil {
		t.Fatalf("KeywordSearch() error = %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil result for empty terms, got %v", got)
	}
	if calls != 0 {
		t.Fatalf("expected no request for empty terms, got %d", calls)
	}
}

func TestSearchIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	_, err := client.Search(context.Background(), "org-1", []float32{0.1}, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "collection not found") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}
