// Package llmclient provides the ChatCompletion capability (§4.4):
// the core only depends on this narrow interface, never on a specific
// provider SDK, since the backend is deliberately out of scope.
package llmclient

import "context"

// ChatCompletion is the external chat-completion capability the
// Summarizer drives. Implementations must be safe for concurrent use.
type ChatCompletion interface {
	// Complete returns the model's text completion for prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}
