package events

// TextChunk is a streamed response text delta, emitted in generation order.
type TextChunk struct {
	Text string
}

func NewTextChunk(text string) TextChunk { return TextChunk{Text: text} }

func (t TextChunk) Kind() Kind   { return KindTextChunk }
func (t TextChunk) Payload() any { return t.Text }

// Text carries assembled response text. Filler marks a preliminary
// acknowledgment phrase so clients never confuse it with the substantive
// answer history.
type Text struct {
	Text   string
	Filler bool
}

func NewText(text string) Text       { return Text{Text: text} }
func NewFillerText(text string) Text { return Text{Text: text, Filler: true} }

func (t Text) Kind() Kind { return KindText }

func (t Text) Payload() any {
	return struct {
		Text   string `json:"text"`
		Filler bool   `json:"filler,omitempty"`
	}{Text: t.Text, Filler: t.Filler}
}
