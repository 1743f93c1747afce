package relay

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/intellitutor/voicerelay/core/events"
	"github.com/intellitutor/voicerelay/core/llms"
)

type stubChunk struct{ content string }

func (c stubChunk) FinishReason() *string { return nil }
func (c stubChunk) Content() string       { return c.content }

type stubStream struct {
	chunks []string
	err    error
}

func (s stubStream) Chunks(ctx context.Context) iter.Seq2[llms.StreamChunk, error] {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, chunk := range s.chunks {
			if ctx.Err() != nil {
				return
			}
			if !yield(stubChunk{content: chunk}, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

type stubStreamingLLM struct {
	mu      sync.Mutex
	prompts []string
	chunks  []string
	err     error
	// respond, when set, picks the chunks per prompt instead of chunks.
	respond func(prompt string) []string
}

func (l *stubStreamingLLM) PromptWithStream(_ context.Context, prompt string) llms.Stream {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	chunks := l.chunks
	if l.respond != nil {
		chunks = l.respond(prompt)
	}
	return stubStream{chunks: chunks, err: l.err}
}

func (l *stubStreamingLLM) promptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

func (l *stubStreamingLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

// stubSynthesizer returns the segment text as audio bytes so tests can tell
// which segment a chunk came from. An optional gate blocks calls until
// released; gateFor narrows the gate to matching segments.
type stubSynthesizer struct {
	gate    chan struct{}
	gateFor string
	failFor string
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.gate != nil && (s.gateFor == "" || strings.Contains(text, s.gateFor)) {
		select {
		case <-s.gate:
		case <-ctx.Done():
		}
	}
	if s.failFor != "" && strings.Contains(text, s.failFor) {
		return nil, errors.New("synthesis rejected")
	}
	return []byte(text), nil
}

type stubRetriever struct {
	content string
	delay   time.Duration
	err     error
}

func (r *stubRetriever) Retrieve(ctx context.Context, query, scopeID string, topK int) (string, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.content, r.err
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) follow(s *Session) {
	go func() {
		for ev := range s.Events {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}
	}()
}

func (r *eventRecorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.events...)
}

func (r *eventRecorder) waitFor(t *testing.T, condition func([]events.Event) bool) []events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		all := r.snapshot()
		if condition(all) {
			return all
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for condition, saw %d events: %v", len(all), kinds(all))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func kinds(all []events.Event) []events.Kind {
	result := make([]events.Kind, len(all))
	for i, ev := range all {
		result[i] = ev.Kind()
	}
	return result
}

func hasStatus(all []events.Event, state string) bool {
	for _, ev := range all {
		if status, ok := ev.(events.Status); ok && status.State == state {
			return true
		}
	}
	return false
}

func startTestSession(t *testing.T, opts ...SessionOption) (*Session, *eventRecorder) {
	t.Helper()
	s, err := NewSession(opts...)
	if err != nil {
		t.Fatalf("failed to build session: %v", err)
	}
	recorder := &eventRecorder{}
	recorder.follow(s)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	t.Cleanup(s.Close)
	return s, recorder
}

func TestSessionRespondsToFinalTranscript(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Gravity ", "pulls things ", "down."}}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithSynthesizer(&stubSynthesizer{}),
		WithoutFillers(),
	)

	s.HandleTranscript("what is gravity", true)
	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete) && hasStatus(all, events.StateListening)
	})

	var streamed strings.Builder
	var fullText string
	var audio []byte
	generatingIndex, firstChunkIndex := -1, -1
	for i, ev := range all {
		switch ev := ev.(type) {
		case events.Status:
			if ev.State == events.StateGenerating && generatingIndex == -1 {
				generatingIndex = i
			}
		case events.TextChunk:
			if firstChunkIndex == -1 {
				firstChunkIndex = i
			}
			streamed.WriteString(ev.Text)
		case events.Text:
			fullText = ev.Text
		case events.Audio:
			audio = append(audio, ev.Chunk...)
		}
	}

	if generatingIndex == -1 || generatingIndex > firstChunkIndex {
		t.Error("expected a generating status before the first text chunk")
	}
	if streamed.String() != "Gravity pulls things down." {
		t.Errorf("unexpected streamed text %q", streamed.String())
	}
	if fullText != "Gravity pulls things down." {
		t.Errorf("unexpected assembled text %q", fullText)
	}
	if string(audio) != "Gravity pulls things down." {
		t.Errorf("unexpected synthesized audio %q", string(audio))
	}

	conversation := s.Conversation()
	if len(conversation) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(conversation))
	}
	if conversation[0].Role != TurnRoleUser || conversation[1].Role != TurnRoleAssistant {
		t.Errorf("unexpected history roles %v, %v", conversation[0].Role, conversation[1].Role)
	}
}

func TestSessionDeduplicatesRepeatedFinals(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Answer."}}
	s, recorder := startTestSession(t, WithStreamingLLM(llm), WithoutFillers())

	s.HandleTranscript("Tell me more.", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	s.HandleTranscript("  tell me more.  ", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return countTranscripts(all) == 2
	})

	time.Sleep(50 * time.Millisecond)
	if count := llm.promptCount(); count != 1 {
		t.Errorf("expected a single generation, got %d", count)
	}
}

func countTranscripts(all []events.Event) int {
	count := 0
	for _, ev := range all {
		if ev.Kind() == events.KindTranscript {
			count++
		}
	}
	return count
}

func TestSessionIgnoresInterimTranscripts(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Answer."}}
	s, recorder := startTestSession(t, WithStreamingLLM(llm), WithoutFillers())

	s.HandleTranscript("so about the", false)
	recorder.waitFor(t, func(all []events.Event) bool {
		return countTranscripts(all) == 1
	})

	time.Sleep(50 * time.Millisecond)
	if count := llm.promptCount(); count != 0 {
		t.Errorf("expected no generation for an interim transcript, got %d", count)
	}
	if hasStatus(recorder.snapshot(), events.StateGenerating) {
		t.Error("expected no generating status for an interim transcript")
	}
}

func TestSessionBargeInSuppressesCancelledAudio(t *testing.T) {
	llm := &stubStreamingLLM{respond: func(prompt string) []string {
		if strings.Contains(prompt, "first question") {
			return []string{"Alpha response, ", "quite a long one."}
		}
		return []string{"Beta."}
	}}
	synth := &stubSynthesizer{gate: make(chan struct{}), gateFor: "Alpha"}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithSynthesizer(synth),
		WithoutFillers(),
	)

	s.HandleTranscript("first question", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateGenerating)
	})

	// Synthesis of the first turn is still blocked on the gate when the
	// user talks over it.
	s.HandleTranscript("second question", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateInterrupted)
	})
	close(synth.gate)

	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	for _, ev := range all {
		if audio, ok := ev.(events.Audio); ok {
			if strings.Contains(string(audio.Chunk), "Alpha") {
				t.Fatalf("cancelled turn audio leaked: %q", string(audio.Chunk))
			}
		}
	}
	if count := llm.promptCount(); count != 2 {
		t.Errorf("expected 2 generations, got %d", count)
	}
}

func TestSessionShortInterimDoesNotInterrupt(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Long and steady answer."}}
	synth := &stubSynthesizer{gate: make(chan struct{})}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithSynthesizer(synth),
		WithoutFillers(),
	)

	s.HandleTranscript("a question", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateGenerating)
	})

	// Three characters or fewer is treated as noise.
	s.HandleTranscript("uh", false)
	close(synth.gate)

	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})
	if hasStatus(all, events.StateInterrupted) {
		t.Error("short interim transcript should not interrupt the turn")
	}
}

func TestSessionRetrievalContextReachesPrompt(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Answer."}}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithoutFillers(),
		WithRetriever(&stubRetriever{content: "photosynthesis converts light"}),
		WithScopeID("material-7"),
	)

	s.HandleTranscript("how do plants eat", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	prompt := llm.lastPrompt()
	if !strings.Contains(prompt, "photosynthesis converts light") {
		t.Errorf("expected retrieved context in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "how do plants eat") {
		t.Errorf("expected transcript in prompt, got %q", prompt)
	}
}

func TestSessionRetrievalDeadlineFallsBackToNoContext(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Answer."}}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithoutFillers(),
		WithRetriever(&stubRetriever{content: "too late", delay: 500 * time.Millisecond}),
		WithScopeID("material-7"),
		WithRetrievalDeadline(20*time.Millisecond),
	)

	s.HandleTranscript("a question", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	if prompt := llm.lastPrompt(); strings.Contains(prompt, "too late") {
		t.Errorf("expected retrieval to be abandoned, prompt %q", prompt)
	}
}

func TestSessionGenerationFailureEmitsError(t *testing.T) {
	llm := &stubStreamingLLM{err: errors.New("upstream unavailable")}
	s, recorder := startTestSession(t, WithStreamingLLM(llm), WithoutFillers())

	s.HandleTranscript("a question", true)
	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateListening)
	})

	sawError := false
	for _, ev := range all {
		if ev.Kind() == events.KindError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("expected an error event for a failed generation")
	}
	if hasStatus(all, events.StateComplete) {
		t.Error("failed turn must not report complete")
	}
	if len(s.Conversation()) != 0 {
		t.Error("failed turn must not enter the conversation history")
	}
}

func TestSessionSynthesisFailureIsNotFatal(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"First part. ", "Second part."}}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithSynthesizer(&stubSynthesizer{failFor: "First"}),
		WithoutFillers(),
	)

	s.HandleTranscript("a question", true)
	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	sawError := false
	var audio []byte
	for _, ev := range all {
		switch ev := ev.(type) {
		case events.Error:
			sawError = true
		case events.Audio:
			audio = append(audio, ev.Chunk...)
		}
	}
	if !sawError {
		t.Error("expected an error event for the failed segment")
	}
	if !strings.Contains(string(audio), "Second part.") {
		t.Errorf("expected surviving segment audio, got %q", string(audio))
	}
}

func TestSessionAudioOrderedAcrossConcurrentSegments(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"First one. ", "Second one."}}
	synth := &stubSynthesizer{gate: make(chan struct{}), gateFor: "First"}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithSynthesizer(synth),
		WithoutFillers(),
	)

	s.HandleTranscript("a question", true)
	recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateGenerating)
	})

	// The second segment's synthesis finishes while the first is still held
	// on the gate; its audio must still arrive second.
	time.Sleep(50 * time.Millisecond)
	close(synth.gate)

	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	var audio []string
	for _, ev := range all {
		if a, ok := ev.(events.Audio); ok {
			audio = append(audio, string(a.Chunk))
		}
	}
	if len(audio) != 2 {
		t.Fatalf("expected 2 audio events, got %d: %v", len(audio), audio)
	}
	if audio[0] != "First one." || audio[1] != "Second one." {
		t.Errorf("audio out of segment order: %v", audio)
	}
}

func TestSessionFillerPrecedesResponse(t *testing.T) {
	llm := &stubStreamingLLM{chunks: []string{"Real answer."}}
	s, recorder := startTestSession(t,
		WithStreamingLLM(llm),
		WithSynthesizer(&stubSynthesizer{}),
		WithFillers("One moment please."),
	)

	s.HandleTranscript("a question", true)
	all := recorder.waitFor(t, func(all []events.Event) bool {
		return hasStatus(all, events.StateComplete)
	})

	fillerIndex, chunkIndex := -1, -1
	for i, ev := range all {
		switch ev := ev.(type) {
		case events.Text:
			if ev.Filler && fillerIndex == -1 {
				fillerIndex = i
			}
		case events.TextChunk:
			if chunkIndex == -1 {
				chunkIndex = i
			}
		}
	}
	if fillerIndex == -1 {
		t.Fatal("expected a filler text event")
	}
	if chunkIndex != -1 && fillerIndex > chunkIndex {
		t.Error("filler must be emitted before streamed response text")
	}

	conversation := s.Conversation()
	for _, turn := range conversation {
		if strings.Contains(turn.Content, "One moment") {
			t.Error("filler must not enter the conversation history")
		}
	}
}

func TestNewSessionRequiresGenerator(t *testing.T) {
	if _, err := NewSession(); err == nil {
		t.Error("expected an error without a text generation client")
	}
}
