package dialogue

import (
	"github.com/medeval/tcm-dialogue-bench/internal/llm"
)

// Thread is one participant's private, append-only conversation log. Every
// thread is seeded with that participant's system prompt and reads as a
// self-consistent first-person chat history: the participant's own
// utterances carry the assistant role, everything said to it the user role.
type Thread struct {
	messages []llm.Message
}

func NewThread(systemPrompt string) *Thread {
	return &Thread{
		messages: []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}},
	}
}

func (t *Thread) Append(role llm.Role, content string) {
	t.messages = append(t.messages, llm.Message{Role: role, Content: content})
}

// Messages returns a copy of the full history, system prompt included, in
// the form a chat completion call expects.
func (t *Thread) Messages() []llm.Message {
	out := make([]llm.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Transcript returns the exchanged messages without the system prompt.
func (t *Thread) Transcript() []llm.Message {
	if len(t.messages) <= 1 {
		return nil
	}
	out := make([]llm.Message, len(t.messages)-1)
	copy(out, t.messages[1:])
	return out
}

func (t *Thread) Len() int {
	return len(t.messages)
}

// relay records one utterance in both affected threads: as the speaker's own
// words (assistant role) and as what the listener heard (user role). The two
// texts differ only when an addressing marker is stripped before forwarding.
func relay(speaker, listener *Thread, spoken, heard string) {
	speaker.Append(llm.RoleAssistant, spoken)
	listener.Append(llm.RoleUser, heard)
}

// truncateTranscript bounds a transcript to its most recent max entries.
// The closing messages hold the diagnosis, so the head is dropped first.
func truncateTranscript(messages []llm.Message, max int) []llm.Message {
	if max <= 0 || len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}
