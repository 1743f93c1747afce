package relay

import (
	"time"

	"github.com/intellitutor/voicerelay/core/retrieval"
)

const (
	// defaultSegmentWordLimit caps how much response text accumulates before
	// it is handed to synthesis, keeping time-to-first-audio low.
	defaultSegmentWordLimit = 8
	// defaultAudioChunkSize is the wire block size for synthesized audio.
	defaultAudioChunkSize = 4096
	// defaultInterruptionThreshold is the minimum interim transcript length,
	// in characters, treated as deliberate speech rather than noise.
	defaultInterruptionThreshold = 3
	defaultRetrievalDeadline     = 5 * time.Second
	defaultHistoryLimit          = 4

	inboundQueueCapacity = 32
	ingestQueueCapacity  = 64

	// maxConcurrentSyntheses bounds in-flight synthesis requests per turn.
	// Results are still delivered in segment order.
	maxConcurrentSyntheses = 2
)

var defaultFillers = []string{
	"Let me think about that.",
	"That's a good question.",
	"Hmm, let me see.",
	"One moment.",
}

type sessionConfig struct {
	scopeID               string
	retrievalDeadline     time.Duration
	retrievalTopK         int
	segmentWordLimit      int
	audioChunkSize        int
	interruptionThreshold int
	historyLimit          int
	fillers               []string
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		retrievalDeadline:     defaultRetrievalDeadline,
		retrievalTopK:         retrieval.DefaultTopK,
		segmentWordLimit:      defaultSegmentWordLimit,
		audioChunkSize:        defaultAudioChunkSize,
		interruptionThreshold: defaultInterruptionThreshold,
		historyLimit:          defaultHistoryLimit,
		fillers:               defaultFillers,
	}
}
