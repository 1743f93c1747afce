package relay

import "strings"

type speechSegment struct {
	index  int
	text   string
	filler bool
}

const sentenceTerminators = ".!?\n"

// segmentAssembler accumulates streamed response text and cuts it into
// speakable segments. The buffer flushes as a whole once it holds a sentence
// terminator or reaches the word limit, whichever comes first.
type segmentAssembler struct {
	wordLimit int
	buffer    strings.Builder
}

func newSegmentAssembler(wordLimit int) *segmentAssembler {
	return &segmentAssembler{wordLimit: wordLimit}
}

// Add appends a text delta and returns the segment it completed, if any.
func (a *segmentAssembler) Add(text string) (string, bool) {
	a.buffer.WriteString(text)
	buffered := a.buffer.String()
	if len(strings.Fields(buffered)) < a.wordLimit &&
		!strings.ContainsAny(buffered, sentenceTerminators) {
		return "", false
	}
	return a.flush()
}

// Remainder flushes whatever is buffered once the stream has ended.
func (a *segmentAssembler) Remainder() (string, bool) {
	return a.flush()
}

func (a *segmentAssembler) flush() (string, bool) {
	segment := strings.TrimSpace(a.buffer.String())
	a.buffer.Reset()
	if segment == "" {
		return "", false
	}
	return segment, true
}
