// Package deepgram synthesizes speech through Deepgram's REST speak API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/intellitutor/voicerelay/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const speakURL = "https://api.deepgram.com/v1/speak"

type TextToSpeechClient struct {
	apiKey  string
	voice   deepgramVoice
	options texttospeech.SynthesisOptions

	httpClient *http.Client
}

func NewTextToSpeechClient(apiKey string, voice deepgramVoice, opts ...texttospeech.SynthesisOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key is required")
	}
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	options := texttospeech.SynthesisOptions{Encoding: "mp3"}
	for _, opt := range opts {
		opt(&options)
	}

	return &TextToSpeechClient{
		apiKey:  apiKey,
		voice:   voice,
		options: options,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}

// Synthesize converts one text segment into audio bytes. Callers must not
// pass empty or whitespace-only segments.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot synthesize empty text")
	}

	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.voice", string(c.voice)),
		attribute.Int("request.text_length", len(text)),
	)

	requestBodyBytes, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	queryParams := url.Values{}
	queryParams.Set("model", string(c.voice))
	queryParams.Set("encoding", c.options.Encoding)

	req, err := http.NewRequestWithContext(ctx, "POST", speakURL+"?"+queryParams.Encode(), bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.RecordError(err)
		return nil, err
	}

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading synthesized audio: %w", err)
	}

	span.SetAttributes(attribute.Int("response.audio_bytes", len(audioBytes)))
	return audioBytes, nil
}
