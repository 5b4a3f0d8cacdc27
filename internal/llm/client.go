package llm

import (
	"context"
)

// ChatClient is an interface for invoking chat-completion models.
// This allows mocking in tests without making real API calls.
//
// Implementations own the target model ID and any transport-level retry;
// callers treat every error uniformly as "this call failed" and must not
// inspect a more granular failure type.
type ChatClient interface {
	Complete(ctx context.Context, request ChatRequest) (*ChatResponse, error)
}
