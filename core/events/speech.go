package events

import "encoding/base64"

// Audio is one fixed-size block of synthesized speech. Ordinals are strictly
// increasing within a segment; segments are numbered in generation order.
type Audio struct {
	Chunk   []byte
	Segment int
	Ordinal int
}

func NewAudio(chunk []byte, segment, ordinal int) Audio {
	return Audio{Chunk: chunk, Segment: segment, Ordinal: ordinal}
}

func (a Audio) Kind() Kind { return KindAudio }

func (a Audio) Payload() any {
	return base64.StdEncoding.EncodeToString(a.Chunk)
}
