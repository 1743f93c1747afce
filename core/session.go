// Package relay orchestrates one real-time voice conversation: inbound audio
// is transcribed, final transcripts trigger response turns, and every
// client-bound event flows through a single ordered output queue.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/intellitutor/voicerelay/core/audio"
	"github.com/intellitutor/voicerelay/core/events"
	"github.com/intellitutor/voicerelay/core/retrieval"
	"github.com/intellitutor/voicerelay/core/speechtotext"
)

// TranscriptEvent is one transcription result entering the session loop.
// Sequence is assigned at callback time, so loop processing order matches
// provider delivery order.
type TranscriptEvent struct {
	Text     string
	IsFinal  bool
	Sequence uint64
}

type Session struct {
	ID string

	config sessionConfig

	speechToText SpeechToText
	synthesizer  SpeechSynthesizer
	streamingLLM LLMWithStream
	promptLLM    LLMWithPrompt
	retriever    retrieval.Retriever

	output  *outputQueue
	ingest  *audioIngest
	inbound chan TranscriptEvent
	seq     atomic.Uint64

	history *conversationHistory

	// mu guards activeTurn and lastFinalTranscript, shared between the
	// session loop and finishing turn goroutines.
	mu                  sync.Mutex
	activeTurn          *responseTurn
	lastFinalTranscript string

	baseCtx   context.Context
	cancel    context.CancelFunc
	started   bool
	closeOnce sync.Once
	loopDone  chan struct{}
}

// NewSession assembles a session from its providers. A text generator is
// required; transcription, synthesis and retrieval are optional and the
// affected stages are skipped without them.
func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		ID:       uuid.NewString(),
		config:   defaultSessionConfig(),
		output:   newOutputQueue(),
		ingest:   newAudioIngest(),
		inbound:  make(chan TranscriptEvent, inboundQueueCapacity),
		history:  newConversationHistory(),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streamingLLM == nil && s.promptLLM == nil {
		return nil, errors.New("a text generation client is required")
	}
	return s, nil
}

// Start begins the session loop and, when a transcription client is
// configured, opens the transcription stream.
func (s *Session) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session start")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.ID))

	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	go s.run(s.baseCtx)

	s.output.Enqueue(events.NewStatus(events.StateConnected))

	if s.speechToText == nil {
		return nil
	}
	err := s.speechToText.Transcribe(s.baseCtx,
		speechtotext.WithEncodingInfo(audio.GetDefaultEncodingInfo()),
		speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			s.enqueueTranscript(transcript, false)
		}),
		speechtotext.WithTranscriptionCallback(func(transcript string) {
			s.enqueueTranscript(transcript, true)
		}),
		speechtotext.WithErrorCallback(func(err error) {
			logger.WarnContext(s.baseCtx, "transcription error", "error", err, "session_id", s.ID)
			s.output.Enqueue(events.NewError("speech recognition hit a problem, please keep talking"))
		}),
		speechtotext.WithDisconnectCallback(func() {
			s.Close()
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open transcription stream")
		s.cancel()
		return fmt.Errorf("failed to open transcription stream: %w", err)
	}
	s.ingest.Start(s.baseCtx, s.speechToText.SendAudio)
	return nil
}

// SendAudio hands one inbound audio frame to transcription. It never blocks.
func (s *Session) SendAudio(frame []byte) {
	if s.speechToText == nil {
		return
	}
	s.ingest.Push(frame)
}

// HandleTranscript injects a transcription result directly, bypassing the
// speech-to-text client. The transport uses it for typed messages.
func (s *Session) HandleTranscript(text string, isFinal bool) {
	s.enqueueTranscript(text, isFinal)
}

// Events yields client-bound events in delivery order. It blocks while the
// session is idle and returns once the session is closed and drained.
func (s *Session) Events(yield func(events.Event) bool) {
	s.output.Events(yield)
}

// Conversation returns a copy of the completed exchanges so far.
func (s *Session) Conversation() []ConversationTurn {
	return s.history.Snapshot()
}

func (s *Session) enqueueTranscript(text string, isFinal bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	ctx := s.baseCtx
	if ctx == nil {
		// Not started yet; providers only deliver after Start.
		return
	}
	ev := TranscriptEvent{Text: text, IsFinal: isFinal, Sequence: s.seq.Add(1)}
	select {
	case s.inbound <- ev:
	case <-ctx.Done():
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.inbound:
			s.handleTranscript(ctx, ev)
		}
	}
}

func (s *Session) handleTranscript(ctx context.Context, ev TranscriptEvent) {
	s.output.Enqueue(events.NewTranscript(ev.Text, ev.IsFinal, ev.Sequence))

	s.mu.Lock()
	active := s.activeTurn
	s.mu.Unlock()
	if active != nil && s.isInterruption(ev) {
		s.interrupt(active)
	}

	if !ev.IsFinal {
		return
	}

	normalized := normalizeTranscript(ev.Text)
	s.mu.Lock()
	if normalized == s.lastFinalTranscript {
		s.mu.Unlock()
		return
	}
	s.lastFinalTranscript = normalized
	s.mu.Unlock()

	s.startTurn(ctx, ev.Text)
}

// isInterruption reports whether a transcript arriving mid-turn counts as
// the user talking over the response. Finals always do; interims only past
// the noise threshold.
func (s *Session) isInterruption(ev TranscriptEvent) bool {
	return ev.IsFinal || len(ev.Text) > s.config.interruptionThreshold
}

func (s *Session) interrupt(turn *responseTurn) {
	if !turn.interrupt() {
		return
	}
	dropped := s.output.DropTurnAudio(turn.id)
	s.output.Enqueue(events.NewStatus(events.StateInterrupted))
	logger.Debug("turn interrupted",
		"session_id", s.ID, "turn_id", turn.id, "dropped_audio_events", dropped)
}

func (s *Session) startTurn(ctx context.Context, transcript string) {
	turn := newResponseTurn(ctx, s, transcript)
	s.mu.Lock()
	s.activeTurn = turn
	s.mu.Unlock()
	go turn.run()
}

func (s *Session) finishTurn(turn *responseTurn) {
	s.mu.Lock()
	if s.activeTurn == turn {
		s.activeTurn = nil
	}
	s.mu.Unlock()

	if turn.status == turnStatusComplete && turn.response.Len() > 0 {
		s.history.Append(
			ConversationTurn{Role: TurnRoleUser, Content: turn.transcript},
			ConversationTurn{Role: TurnRoleAssistant, Content: turn.response.String()},
		)
	}
	s.output.Enqueue(events.NewStatus(events.StateListening))
}

// Close tears the session down: the loop and any active turn stop, the
// transcription stream is closed, and the output queue drains its remaining
// events before ending. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_, span := tracer.Start(context.Background(), "session close")
		defer span.End()
		span.SetAttributes(attribute.String("session.id", s.ID))

		s.ingest.Close()
		if s.started {
			s.cancel()
			<-s.loopDone
		}
		if s.speechToText != nil {
			if err := s.speechToText.Close(context.Background()); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to close transcription client")
			}
		}
		s.output.Close()
		logger.Debug("session closed",
			"session_id", s.ID, "dropped_audio_frames", s.ingest.Dropped())
	})
}

func normalizeTranscript(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
