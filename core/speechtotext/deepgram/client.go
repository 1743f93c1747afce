// Package deepgram transcribes live audio through Deepgram's streaming
// websocket API.
package deepgram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type TranscriptionClient struct {
	apiKey string
	model  string

	conn      *websocket.Conn
	connMu    sync.Mutex
	lastMsgTs time.Time
}

type ClientOption func(*TranscriptionClient)

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key is required")
	}

	client := &TranscriptionClient{apiKey: apiKey, model: "nova-2"}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (s *TranscriptionClient) Close(ctx context.Context) error {
	if err := s.StopStream(); err != nil {
		return err
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("failed to close deepgram connection: %w", err)
		}
		s.conn = nil
	}
	return nil
}
