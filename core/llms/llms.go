// Package llms defines the contracts shared by text-generation providers.
package llms

import (
	"context"
	"iter"
)

// Stream is a lazily-consumed token stream. Chunks stops yielding when the
// consumer breaks out of the range loop or the context is cancelled; the
// provider must stop consuming upstream tokens and release its resources in
// both cases.
type Stream interface {
	Chunks(ctx context.Context) iter.Seq2[StreamChunk, error]
}

type StreamChunk interface {
	FinishReason() *string
}

// ContentChunk is a StreamChunk carrying response text.
type ContentChunk interface {
	StreamChunk
	Content() string
}

// UsageChunk is a StreamChunk carrying token accounting, emitted at most once
// per stream.
type UsageChunk interface {
	StreamChunk
	Usage() Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
