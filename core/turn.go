package relay

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/intellitutor/voicerelay/core/events"
	"github.com/intellitutor/voicerelay/core/llms"
)

type turnStatus string

const (
	turnStatusGenerating  turnStatus = "generating"
	turnStatusInterrupted turnStatus = "interrupted"
	turnStatusComplete    turnStatus = "complete"
	turnStatusFailed      turnStatus = "failed"
)

const generationErrorMessage = "I'm having trouble processing that right now. Could you try again?"

// responseTurn runs one transcript through retrieval, generation, and
// synthesis. status is written only by the turn goroutine; interrupted is
// the cross-goroutine cancellation flag.
type responseTurn struct {
	id         string
	transcript string
	session    *Session

	ctx       context.Context
	cancelCtx context.CancelFunc

	interrupted atomic.Bool
	status      turnStatus
	response    strings.Builder
}

func newResponseTurn(ctx context.Context, session *Session, transcript string) *responseTurn {
	ctx, cancel := context.WithCancel(ctx)
	return &responseTurn{
		id:         uuid.NewString(),
		transcript: transcript,
		session:    session,
		ctx:        ctx,
		cancelCtx:  cancel,
		status:     turnStatusGenerating,
	}
}

// interrupt marks the turn cancelled. It reports whether this call was the
// one that cancelled it.
func (t *responseTurn) interrupt() bool {
	if !t.interrupted.CompareAndSwap(false, true) {
		return false
	}
	t.cancelCtx()
	return true
}

func (t *responseTurn) emit(event events.Event) {
	t.session.output.EnqueueTurn(t.id, event)
}

func (t *responseTurn) run() {
	defer t.session.finishTurn(t)
	defer t.cancelCtx()

	ctx, span := tracer.Start(t.ctx, "response turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("turn.id", t.id),
		attribute.Int("turn.transcript_length", len(t.transcript)),
	)

	t.emit(events.NewStatus(events.StateGenerating))

	segments := make(chan speechSegment)
	synthDone := make(chan struct{})
	go t.synthesizeSegments(ctx, segments, synthDone)

	segmentIndex := 0
	if filler := t.session.pickFiller(); filler != "" {
		t.emit(events.NewFillerText(filler))
		segments <- speechSegment{index: segmentIndex, text: filler, filler: true}
		segmentIndex++
	}

	prompt := buildPrompt(
		t.transcript,
		t.retrieveContext(ctx),
		t.session.history.Recent(t.session.config.historyLimit),
	)

	err := t.generate(ctx, prompt, segments, &segmentIndex)
	switch {
	case t.interrupted.Load():
		t.status = turnStatusInterrupted

	case err != nil:
		t.status = turnStatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		logger.ErrorContext(ctx, "response generation failed",
			"error", err, "session_id", t.session.ID, "turn_id", t.id)
		t.emit(events.NewError(generationErrorMessage))

	default:
		t.emit(events.NewText(t.response.String()))
	}

	close(segments)
	<-synthDone

	if t.status == turnStatusGenerating && !t.interrupted.Load() {
		t.status = turnStatusComplete
		t.emit(events.NewStatus(events.StateComplete))
	}
}

// generate produces response text, emitting streamed deltas and handing
// completed segments to synthesis as they form.
func (t *responseTurn) generate(ctx context.Context, prompt string, segments chan<- speechSegment, segmentIndex *int) error {
	assembler := newSegmentAssembler(t.session.config.segmentWordLimit)

	push := func(text string) {
		t.response.WriteString(text)
		t.emit(events.NewTextChunk(text))
		if segment, ok := assembler.Add(text); ok {
			segments <- speechSegment{index: *segmentIndex, text: segment}
			*segmentIndex++
		}
	}

	if t.session.streamingLLM != nil {
		stream := t.session.streamingLLM.PromptWithStream(ctx, prompt)
		for chunk, err := range stream.Chunks(ctx) {
			if t.interrupted.Load() {
				return nil
			}
			if err != nil {
				return err
			}
			content, ok := chunk.(llms.ContentChunk)
			if !ok || content.Content() == "" {
				continue
			}
			push(content.Content())
		}
	} else {
		response, err := t.session.promptLLM.Prompt(ctx, prompt)
		if err != nil {
			return err
		}
		if t.interrupted.Load() {
			return nil
		}
		push(response)
	}

	if t.interrupted.Load() {
		return nil
	}
	if segment, ok := assembler.Remainder(); ok {
		segments <- speechSegment{index: *segmentIndex, text: segment}
		*segmentIndex++
	}
	return nil
}

// retrieveContext fetches supporting material for the prompt. It is bounded
// by the retrieval deadline and degrades to an empty context on any failure,
// keeping the response path alive.
func (t *responseTurn) retrieveContext(ctx context.Context) string {
	s := t.session
	if s.retriever == nil || s.config.scopeID == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.retrievalDeadline)
	defer cancel()
	ctx, span := tracer.Start(ctx, "retrieve context")
	defer span.End()

	retrieved, err := s.retriever.Retrieve(ctx, t.transcript, s.config.scopeID, s.config.retrievalTopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context retrieval failed")
		logger.WarnContext(ctx, "context retrieval failed, continuing without context",
			"error", err, "session_id", s.ID, "turn_id", t.id)
		return ""
	}
	return retrieved
}

type synthesisResult struct {
	segment speechSegment
	audio   []byte
	err     error
}

// synthesizeSegments runs synthesis concurrently but delivers audio in
// segment order: slots enter the results queue in launch order and the
// drainer waits on each in turn.
func (t *responseTurn) synthesizeSegments(ctx context.Context, segments <-chan speechSegment, done chan<- struct{}) {
	defer close(done)

	if t.session.synthesizer == nil {
		for range segments {
		}
		return
	}

	results := make(chan chan synthesisResult, maxConcurrentSyntheses)
	go func() {
		defer close(results)
		for segment := range segments {
			if t.interrupted.Load() {
				continue
			}
			slot := make(chan synthesisResult, 1)
			results <- slot
			go func(segment speechSegment) {
				audio, err := t.session.synthesizer.Synthesize(ctx, segment.text)
				slot <- synthesisResult{segment: segment, audio: audio, err: err}
			}(segment)
		}
	}()

	speaking := false
	for slot := range results {
		result := <-slot
		if t.interrupted.Load() {
			continue
		}
		if result.err != nil {
			logger.WarnContext(ctx, "segment synthesis failed",
				"error", result.err, "session_id", t.session.ID,
				"turn_id", t.id, "segment", result.segment.index)
			t.emit(events.NewError("part of the spoken response could not be synthesized"))
			continue
		}
		if !speaking {
			t.emit(events.NewStatus(events.StateSpeaking))
			speaking = true
		}
		for ordinal, chunk := range chunkAudio(result.audio, t.session.config.audioChunkSize) {
			t.emit(events.NewAudio(chunk, result.segment.index, ordinal))
		}
	}
}

func chunkAudio(audio []byte, size int) [][]byte {
	if len(audio) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(audio)+size-1)/size)
	for start := 0; start < len(audio); start += size {
		end := min(start+size, len(audio))
		chunks = append(chunks, audio[start:end])
	}
	return chunks
}

func (s *Session) pickFiller() string {
	if len(s.config.fillers) == 0 {
		return ""
	}
	return s.config.fillers[rand.IntN(len(s.config.fillers))]
}
