package deepgram

import "testing"

func TestNewTextToSpeechClientRejectsUnknownVoice(t *testing.T) {
	if _, err := NewTextToSpeechClient("key", deepgramVoice("aura-nonexistent-en")); err == nil {
		t.Fatalf("expected error for unknown voice")
	}
}

func TestNewTextToSpeechClientDefaultsVoiceAndEncoding(t *testing.T) {
	client, err := NewTextToSpeechClient("key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.voice != defaultVoice {
		t.Fatalf("expected default voice %q, got %q", defaultVoice, client.voice)
	}
	if client.options.Encoding != "mp3" {
		t.Fatalf("expected mp3 encoding, got %q", client.options.Encoding)
	}
}

func TestSynthesizeRejectsWhitespaceSegments(t *testing.T) {
	client, err := NewTextToSpeechClient("key", VoiceAsteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Synthesize(t.Context(), "   \n"); err == nil {
		t.Fatalf("expected error for whitespace-only segment")
	}
}
