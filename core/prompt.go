package relay

import (
	"fmt"
	"strings"
)

// maxPromptContextLength caps how much retrieved material a single prompt
// carries, in runes. Retrieval can return far more than a short spoken
// answer can use.
const maxPromptContextLength = 500

const promptPersona = "You are Alex, a helpful AI tutor. Respond naturally and conversationally."

// buildPrompt assembles the generation prompt from the final transcript,
// optional retrieved context, and the most recent completed exchanges.
func buildPrompt(transcript, retrievedContext string, history []ConversationTurn) string {
	var b strings.Builder
	b.WriteString(promptPersona)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range history {
			b.WriteString(fmt.Sprintf("%s: %s\n", promptSpeaker(turn.Role), turn.Content))
		}
		b.WriteString("\n")
	}

	if retrievedContext != "" {
		b.WriteString(fmt.Sprintf("Relevant context: %s\n\n", truncateContext(retrievedContext)))
	}

	b.WriteString(fmt.Sprintf("Student: %s\n\n", transcript))
	b.WriteString("Keep your response brief (2-3 sentences max) since this is a voice conversation.")
	return b.String()
}

func promptSpeaker(role TurnRole) string {
	if role == TurnRoleAssistant {
		return "Alex"
	}
	return "Student"
}

func truncateContext(context string) string {
	runes := []rune(context)
	if len(runes) <= maxPromptContextLength {
		return context
	}
	return string(runes[:maxPromptContextLength])
}
