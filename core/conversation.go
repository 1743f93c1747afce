package relay

import (
	"sync"

	"github.com/jinzhu/copier"
)

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

type ConversationTurn struct {
	Role    TurnRole
	Content string
}

// conversationHistory records completed exchanges. Interrupted and failed
// turns never reach it, so prompts are only ever conditioned on responses
// the user actually heard.
type conversationHistory struct {
	mu    sync.RWMutex
	turns []ConversationTurn
}

func newConversationHistory() *conversationHistory {
	return &conversationHistory{}
}

func (h *conversationHistory) Append(turns ...ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turns...)
}

// Recent returns a copy of up to the last limit turns.
func (h *conversationHistory) Recent(limit int) []ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || len(h.turns) == 0 {
		return nil
	}
	start := len(h.turns) - limit
	if start < 0 {
		start = 0
	}
	recent := make([]ConversationTurn, len(h.turns)-start)
	copy(recent, h.turns[start:])
	return recent
}

// Snapshot deep-copies the full history for callers outside the session.
func (h *conversationHistory) Snapshot() []ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snapshot := []ConversationTurn{}
	if err := copier.CopyWithOption(&snapshot, &h.turns, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to snapshot conversation history", "error", err)
		return nil
	}
	return snapshot
}
