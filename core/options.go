package relay

import (
	"context"
	"time"

	"github.com/intellitutor/voicerelay/core/llms"
	"github.com/intellitutor/voicerelay/core/retrieval"
	"github.com/intellitutor/voicerelay/core/speechtotext"
)

// SpeechToText is a streaming transcription provider. Transcribe opens the
// stream and delivers results through the configured callbacks until the
// stream ends or Close is called.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	Close(ctx context.Context) error
}

// SpeechSynthesizer converts one text segment into encoded audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// LLMWithStream generates a response as an incrementally consumable stream.
type LLMWithStream interface {
	PromptWithStream(ctx context.Context, prompt string) llms.Stream
}

// LLMWithPrompt generates a full response in one call. It is the fallback
// when no streaming provider is configured.
type LLMWithPrompt interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}

type SessionOption func(*Session)

func WithSpeechToText(client SpeechToText) SessionOption {
	return func(s *Session) { s.speechToText = client }
}

func WithSynthesizer(client SpeechSynthesizer) SessionOption {
	return func(s *Session) { s.synthesizer = client }
}

func WithStreamingLLM(client LLMWithStream) SessionOption {
	return func(s *Session) { s.streamingLLM = client }
}

func WithPromptLLM(client LLMWithPrompt) SessionOption {
	return func(s *Session) { s.promptLLM = client }
}

func WithRetriever(retriever retrieval.Retriever) SessionOption {
	return func(s *Session) { s.retriever = retriever }
}

// WithScopeID restricts context retrieval to one document scope. Retrieval
// is skipped entirely without it.
func WithScopeID(scopeID string) SessionOption {
	return func(s *Session) { s.config.scopeID = scopeID }
}

func WithRetrievalDeadline(deadline time.Duration) SessionOption {
	return func(s *Session) {
		if deadline <= 0 {
			return
		}
		s.config.retrievalDeadline = deadline
	}
}

// WithFillers replaces the acknowledgment phrases spoken while a response is
// being generated.
func WithFillers(fillers ...string) SessionOption {
	return func(s *Session) { s.config.fillers = fillers }
}

func WithoutFillers() SessionOption {
	return func(s *Session) { s.config.fillers = nil }
}

func WithSegmentWordLimit(limit int) SessionOption {
	return func(s *Session) {
		if limit <= 0 {
			return
		}
		s.config.segmentWordLimit = limit
	}
}

func WithAudioChunkSize(size int) SessionOption {
	return func(s *Session) {
		if size <= 0 {
			return
		}
		s.config.audioChunkSize = size
	}
}
