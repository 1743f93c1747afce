// Package server exposes the voice conversation relay over HTTP: a
// websocket endpoint per conversation plus a health probe.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/intellitutor/voicerelay/core/retrieval"
	"github.com/intellitutor/voicerelay/core/retrieval/httpapi"
)

type Config struct {
	// DeepgramAPIKey authenticates both transcription and synthesis.
	DeepgramAPIKey string
	// GeminiAPIKey selects Gemini as the response generator when set.
	GeminiAPIKey string
	// GroqAPIKey selects Groq as the response generator when Gemini is not
	// configured.
	GroqAPIKey string
	// RetrievalBaseURL points at the document search service. Retrieval is
	// disabled when empty.
	RetrievalBaseURL string
}

type Server struct {
	config    Config
	retriever retrieval.Retriever
	upgrader  websocket.Upgrader
}

func New(config Config) (*Server, error) {
	if config.GeminiAPIKey == "" && config.GroqAPIKey == "" {
		return nil, errors.New("a gemini or groq api key is required")
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if config.RetrievalBaseURL != "" {
		retriever, err := httpapi.NewClient(config.RetrievalBaseURL)
		if err != nil {
			return nil, err
		}
		s.retriever = retriever
	}
	return s, nil
}

// Handler returns the HTTP surface of the relay.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleConversation)
	return otelhttp.NewHandler(mux, "voicerelay")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
		logger.WarnContext(r.Context(), "failed to write health response", "error", err)
	}
}
