package summarizer

import "context"

// Completer sends one prompt to a language model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
