package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRequiresGeneratorKey(t *testing.T) {
	if _, err := New(Config{DeepgramAPIKey: "dg-key"}); err == nil {
		t.Error("expected an error without a generator api key")
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, err := New(Config{GroqAPIKey: "test-key"})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status healthy, got %q", body["status"])
	}
}
