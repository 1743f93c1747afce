package gemini

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/intellitutor/voicerelay/core/llms"
	"github.com/intellitutor/voicerelay/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// PromptWithStream prepares a streamed generation for the given prompt. The
// request is not issued until the returned stream's Chunks is consumed.
func (c *Client) PromptWithStream(_ context.Context, prompt string) llms.Stream {
	return &Stream{client: c.client, model: c.model, prompt: prompt}
}

type Stream struct {
	client *genai.Client
	model  string
	prompt string
}

func (s *Stream) Chunks(ctx context.Context) iter.Seq2[llms.StreamChunk, error] {
	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.model))

		requestStarted := time.Now()
		firstChunk := true
		for resp, err := range s.client.Models.GenerateContentStream(ctx, s.model, genai.Text(s.prompt), nil) {
			if err != nil {
				span.RecordError(err)
				yield(nil, err)
				return
			}
			if firstChunk {
				span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestStarted).Seconds()))
				span.AddEvent("received first chunk")
				firstChunk = false
			}

			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}

			var finishReason *string
			if reason := resp.Candidates[0].FinishReason; reason != "" {
				finishReason = utils.Ptr(string(reason))
			}

			var sb strings.Builder
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					sb.WriteString(part.Text)
				}
			}

			if sb.Len() > 0 {
				if !yield(StreamContentChunk{
					finishReason: finishReason,
					content:      sb.String(),
				}, nil) {
					return
				}
			}

			if resp.UsageMetadata != nil && finishReason != nil {
				if !yield(StreamUsageChunk{
					finishReason: finishReason,
					usage: llms.Usage{
						InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
						OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
						TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
					},
				}, nil) {
					return
				}
			}
		}
	}
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string { return s.finishReason }
func (s StreamContentChunk) Content() string       { return s.content }

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string { return s.finishReason }
func (s StreamUsageChunk) Usage() llms.Usage     { return s.usage }
