package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRetrieveJoinsSnippetContents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search-documents" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Query != "what is osmosis" || req.ScopeID != "bio-101" || req.TopK != 3 {
			t.Errorf("unexpected request payload: %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"content": "first snippet"},
				{"content": ""},
				{"content": "second snippet"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := client.Retrieve(context.Background(), "what is osmosis", "bio-101", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first snippet\n\nsecond snippet" {
		t.Fatalf("unexpected context: %q", got)
	}
}

func TestRetrieveErrorsOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Retrieve(context.Background(), "query", "scope", 3); err == nil {
		t.Fatalf("expected error for non-OK status")
	}
}

func TestRetrieveHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Retrieve(ctx, "query", "scope", 3); err == nil {
		t.Fatalf("expected deadline error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("retrieve did not respect context deadline, took %v", elapsed)
	}
}
