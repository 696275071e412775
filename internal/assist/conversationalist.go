package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/detour/internal/config"
	"github.com/agenthands/detour/internal/deviation"
	"github.com/agenthands/detour/internal/llm"
)

// Conversationalist wraps the three prompt operations of the assistant. Each
// is one round-trip completion call; errors are returned to the caller, which
// decides between fallback text and no-progress rather than having the
// recovery baked in here.
type Conversationalist struct {
	llm     llm.Client
	prompts config.Prompts
}

func NewConversationalist(client llm.Client, prompts config.Prompts) *Conversationalist {
	return &Conversationalist{
		llm:     client,
		prompts: prompts,
	}
}

// ExtractFields pulls {cause, new_route, new_eta} out of a free-text driver
// answer. Keys the model omits stay zero; a malformed ETA is dropped during
// unmarshaling.
func (c *Conversationalist) ExtractFields(ctx context.Context, text string) (deviation.Fields, error) {
	resp, err := c.llm.Generate(ctx, c.prompts.Extraction, "Driver message: "+text)
	if err != nil {
		return deviation.Fields{}, fmt.Errorf("extraction call failed: %w", err)
	}

	fields, err := llm.ParseJSON[deviation.Fields](resp)
	if err != nil {
		return deviation.Fields{}, fmt.Errorf("extraction response not parseable: %w", err)
	}
	return fields, nil
}

// Acknowledge produces a courteous reply to the driver's answer.
func (c *Conversationalist) Acknowledge(ctx context.Context, text string) (string, error) {
	resp, err := c.llm.Generate(ctx, c.prompts.Acknowledge, "Driver said: "+text)
	if err != nil {
		return "", fmt.Errorf("acknowledgment call failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

// DraftCustomerMessage writes the formal customer-facing notice, signed by the
// configured sender identity.
func (c *Conversationalist) DraftCustomerMessage(ctx context.Context, cause, newETA string, newRoute []string) (string, error) {
	system := fmt.Sprintf(c.prompts.CustomerMessage, c.prompts.Sender)
	user := fmt.Sprintf("Cause: %s\nNew ETA: %s\nNew route: %s",
		cause, newETA, strings.Join(newRoute, ", "))

	resp, err := c.llm.Generate(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("customer message call failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
