package llm

import (
	"context"
)

// Client is the single round-trip chat completion boundary. Every call carries
// a system-role task description and a user-role payload and returns the
// model's free-text reply.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
