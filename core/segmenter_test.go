package relay

import "testing"

func TestSegmentAssemblerFlushesOnWordLimit(t *testing.T) {
	assembler := newSegmentAssembler(4)

	for _, delta := range []string{"one ", "two ", "three"} {
		if segment, ok := assembler.Add(delta); ok {
			t.Fatalf("expected no segment yet, got %q", segment)
		}
	}
	segment, ok := assembler.Add(" four")
	if !ok {
		t.Fatal("expected a segment at the word limit")
	}
	if segment != "one two three four" {
		t.Errorf("expected %q, got %q", "one two three four", segment)
	}
}

func TestSegmentAssemblerFlushesOnSentenceTerminator(t *testing.T) {
	assembler := newSegmentAssembler(8)

	if segment, ok := assembler.Add("Sure"); ok {
		t.Fatalf("expected no segment yet, got %q", segment)
	}
	segment, ok := assembler.Add(", that works! And")
	if !ok {
		t.Fatal("expected a segment after the terminator")
	}
	if segment != "Sure, that works! And" {
		t.Errorf("unexpected segment %q", segment)
	}
}

func TestSegmentAssemblerRemainder(t *testing.T) {
	assembler := newSegmentAssembler(8)

	assembler.Add("trailing ")
	assembler.Add("words")
	segment, ok := assembler.Remainder()
	if !ok {
		t.Fatal("expected a remainder segment")
	}
	if segment != "trailing words" {
		t.Errorf("unexpected remainder %q", segment)
	}

	if segment, ok := assembler.Remainder(); ok {
		t.Errorf("expected empty remainder after flush, got %q", segment)
	}
}

func TestChunkAudioSplitsAtSize(t *testing.T) {
	audio := make([]byte, 10)
	for i := range audio {
		audio[i] = byte(i)
	}

	chunks := chunkAudio(audio, 4)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 4 || len(chunks[1]) != 4 || len(chunks[2]) != 2 {
		t.Errorf("unexpected chunk sizes %d, %d, %d",
			len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunks[2][1] != 9 {
		t.Errorf("expected last byte 9, got %d", chunks[2][1])
	}

	if chunks := chunkAudio(nil, 4); chunks != nil {
		t.Errorf("expected no chunks for empty audio, got %d", len(chunks))
	}
}
