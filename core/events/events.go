// Package events defines the output event contract crossing the system
// boundary toward the client.
//
// Every event marshals to the wire envelope {"type": <kind>, "data": <payload>}.
// Kinds:
//
//   - status: session/turn state signal (connected, generating, speaking,
//     interrupted, complete, listening)
//   - transcript: user speech transcription, interim or final
//   - text_chunk: streamed response text delta, append-only
//   - text: assembled response text (or a filler acknowledgment, tagged)
//   - audio: base64-encoded synthesized audio block
//   - error: recoverable failure with a human-readable message
package events

import "encoding/json"

type Kind string

const (
	KindStatus     Kind = "status"
	KindTranscript Kind = "transcript"
	KindText       Kind = "text"
	KindTextChunk  Kind = "text_chunk"
	KindAudio      Kind = "audio"
	KindError      Kind = "error"
)

type Event interface {
	Kind() Kind
	Payload() any
}

type envelope struct {
	Type Kind `json:"type"`
	Data any  `json:"data"`
}

// Wire returns the JSON-marshalable envelope for an event.
func Wire(e Event) any {
	return envelope{Type: e.Kind(), Data: e.Payload()}
}

func Marshal(e Event) ([]byte, error) {
	return json.Marshal(Wire(e))
}
