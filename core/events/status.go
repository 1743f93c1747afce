package events

// Status payload values, in the order a healthy turn passes through them.
const (
	StateConnected   = "connected"
	StateListening   = "listening"
	StateGenerating  = "generating"
	StateSpeaking    = "speaking"
	StateInterrupted = "interrupted"
	StateComplete    = "complete"
)

type Status struct {
	State string
}

func NewStatus(state string) Status { return Status{State: state} }

func (s Status) Kind() Kind   { return KindStatus }
func (s Status) Payload() any { return s.State }

type Error struct {
	Message string
}

func NewError(message string) Error { return Error{Message: message} }

func (e Error) Kind() Kind   { return KindError }
func (e Error) Payload() any { return e.Message }
