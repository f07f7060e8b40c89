package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"msgbridge/clients"
)

const (
	// Replies stay short so they read like a human support agent, not an essay
	maxReplyTokens = 160

	systemPreamble = "You are a friendly customer support assistant replying on behalf of a " +
		"small business's social media page. Answer the customer's message briefly and warmly " +
		"in one or two sentences. If the question needs account-specific or order-specific " +
		"information you do not have, say a team member will follow up shortly. Never invent " +
		"prices, policies, or availability."
)

// AnthropicClient implements the clients.CompletionClient interface
type AnthropicClient struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

// NewAnthropicClient creates a new completion client backed by the Anthropic API
func NewAnthropicClient(apiKey string) clients.CompletionClient {
	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   anthropic.ModelClaude3_5HaikuLatest,
		timeout: 20 * time.Second,
	}
}

// Complete requests a short, friendly reply for the given customer message.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxReplyTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPreamble},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
