package relay

import (
	"strings"
	"testing"
)

func TestBuildPromptIncludesHistoryAndContext(t *testing.T) {
	history := []ConversationTurn{
		{Role: TurnRoleUser, Content: "what is a cell"},
		{Role: TurnRoleAssistant, Content: "A cell is the smallest unit of life."},
	}

	prompt := buildPrompt("and what is inside it", "cells contain organelles", history)

	if !strings.Contains(prompt, "Student: what is a cell") {
		t.Errorf("expected history user line in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Alex: A cell is the smallest unit of life.") {
		t.Errorf("expected history assistant line in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Relevant context: cells contain organelles") {
		t.Errorf("expected retrieved context in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Student: and what is inside it") {
		t.Errorf("expected current transcript in prompt:\n%s", prompt)
	}
}

func TestBuildPromptWithoutContextOmitsSection(t *testing.T) {
	prompt := buildPrompt("hello", "", nil)

	if strings.Contains(prompt, "Relevant context") {
		t.Errorf("expected no context section:\n%s", prompt)
	}
	if strings.Contains(prompt, "Recent conversation") {
		t.Errorf("expected no history section:\n%s", prompt)
	}
}

func TestBuildPromptTruncatesLongContext(t *testing.T) {
	long := strings.Repeat("x", maxPromptContextLength+100)

	prompt := buildPrompt("hello", long, nil)

	if strings.Contains(prompt, long) {
		t.Error("expected the context to be truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("x", maxPromptContextLength)) {
		t.Error("expected the truncated context prefix to survive")
	}
}

func TestNormalizeTranscript(t *testing.T) {
	if got := normalizeTranscript("  Hello There.  "); got != "hello there." {
		t.Errorf("unexpected normalization %q", got)
	}
}
