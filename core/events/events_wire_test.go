package events

import (
	"encoding/json"
	"testing"
)

func TestTranscriptWireShape(t *testing.T) {
	raw, err := Marshal(NewTranscript("hello there", true, 7))
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var parsed struct {
		Type string `json:"type"`
		Data struct {
			Text    string `json:"text"`
			IsFinal bool   `json:"is_final"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if parsed.Type != "transcript" {
		t.Fatalf("expected transcript type, got %q", parsed.Type)
	}
	if parsed.Data.Text != "hello there" || !parsed.Data.IsFinal {
		t.Fatalf("unexpected payload: %+v", parsed.Data)
	}
}

func TestAudioPayloadIsBase64(t *testing.T) {
	raw, err := Marshal(NewAudio([]byte{0x00, 0x01, 0x02}, 0, 0))
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var parsed struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if parsed.Type != "audio" {
		t.Fatalf("expected audio type, got %q", parsed.Type)
	}
	if parsed.Data != "AAEC" {
		t.Fatalf("expected base64 payload, got %q", parsed.Data)
	}
}

func TestFillerTextIsTagged(t *testing.T) {
	raw, err := Marshal(NewFillerText("Let me check that for you..."))
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var parsed struct {
		Data struct {
			Text   string `json:"text"`
			Filler bool   `json:"filler"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if !parsed.Data.Filler {
		t.Fatalf("expected filler tag on payload")
	}
}
