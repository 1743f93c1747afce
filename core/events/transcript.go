package events

type Transcript struct {
	Text    string
	IsFinal bool
	// Sequence is a per-session monotonic counter. It orders transcript
	// events internally and is not part of the wire payload.
	Sequence uint64
}

func NewTranscript(text string, isFinal bool, sequence uint64) Transcript {
	return Transcript{Text: text, IsFinal: isFinal, Sequence: sequence}
}

func (t Transcript) Kind() Kind { return KindTranscript }

func (t Transcript) Payload() any {
	return struct {
		Text    string `json:"text"`
		IsFinal bool   `json:"is_final"`
	}{Text: t.Text, IsFinal: t.IsFinal}
}
