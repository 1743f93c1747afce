package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	relay "github.com/intellitutor/voicerelay/core"
	"github.com/intellitutor/voicerelay/core/events"
	"github.com/intellitutor/voicerelay/core/llms/gemini"
	"github.com/intellitutor/voicerelay/core/llms/groq"
	sttdeepgram "github.com/intellitutor/voicerelay/core/speechtotext/deepgram"
	ttsdeepgram "github.com/intellitutor/voicerelay/core/texttospeech/deepgram"
)

// clientMessage is the JSON control message a client may send alongside
// binary audio frames.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "conversation")
	defer span.End()

	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		// Older clients send the scope as material_id.
		scopeID = r.URL.Query().Get("material_id")
	}
	span.SetAttributes(attribute.String("conversation.scope_id", scopeID))

	session, err := s.buildSession(ctx, scopeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build session")
		logger.ErrorContext(ctx, "failed to build session", "error", err)
		http.Error(w, "failed to set up conversation", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		session.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start session")
		logger.ErrorContext(ctx, "failed to start session", "error", err, "session_id", session.ID)
		return
	}
	logger.InfoContext(ctx, "conversation started",
		"session_id", session.ID, "scope_id", scopeID)

	// The session's event iterator is the only writer on the connection.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		for ev := range session.Events {
			if err := conn.WriteJSON(events.Wire(ev)); err != nil {
				logger.DebugContext(ctx, "client write failed, ending conversation",
					"error", err, "session_id", session.ID)
				return
			}
		}
	}()

	s.readClientMessages(ctx, conn, session)
	session.Close()
	<-writerDone
	logger.InfoContext(ctx, "conversation ended", "session_id", session.ID)
}

func (s *Server) readClientMessages(ctx context.Context, conn *websocket.Conn, session *relay.Session) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugContext(ctx, "client read failed",
					"error", err, "session_id", session.ID)
			}
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			session.SendAudio(data)
		case websocket.TextMessage:
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.DebugContext(ctx, "ignoring malformed client message",
					"error", err, "session_id", session.ID)
				continue
			}
			switch msg.Type {
			case "stop":
				return
			case "text":
				// Typed input follows the same path as a final transcript.
				session.HandleTranscript(msg.Text, true)
			}
		}
	}
}

func (s *Server) buildSession(ctx context.Context, scopeID string) (*relay.Session, error) {
	opts := []relay.SessionOption{}

	if s.config.DeepgramAPIKey != "" {
		transcription, err := sttdeepgram.NewTranscriptionClient(s.config.DeepgramAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to build transcription client: %w", err)
		}
		synthesis, err := ttsdeepgram.NewTextToSpeechClient(s.config.DeepgramAPIKey, ttsdeepgram.VoiceAsteria)
		if err != nil {
			return nil, fmt.Errorf("failed to build synthesis client: %w", err)
		}
		opts = append(opts,
			relay.WithSpeechToText(transcription),
			relay.WithSynthesizer(synthesis),
		)
	}

	if s.config.GeminiAPIKey != "" {
		generator, err := gemini.NewClient(ctx, s.config.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to build gemini client: %w", err)
		}
		opts = append(opts, relay.WithStreamingLLM(generator))
	} else {
		generator, err := groq.NewClient(s.config.GroqAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to build groq client: %w", err)
		}
		opts = append(opts, relay.WithStreamingLLM(generator))
	}

	if s.retriever != nil && scopeID != "" {
		opts = append(opts,
			relay.WithRetriever(s.retriever),
			relay.WithScopeID(scopeID),
		)
	}

	return relay.NewSession(opts...)
}
