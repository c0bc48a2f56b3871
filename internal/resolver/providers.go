package resolver

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/meguminnnnnnnnn/go-openai"
)

// AnthropicChat implements ChatClient with the Anthropic Messages API
type AnthropicChat struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicChat creates an Anthropic chat client
func NewAnthropicChat(apiKey, model string, maxTokens int) *AnthropicChat {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &AnthropicChat{
		client:    anthropic.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete implements ChatClient
func (c *AnthropicChat) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := float32(0.1)
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		MultiSystem: []anthropic.MessageSystemPart{{
			Type: "text",
			Text: system,
		}},
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(user)},
		}},
		MaxTokens:   c.maxTokens,
		Temperature: &temperature,
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return "", wrapProviderError(ctx, "anthropic", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: anthropic returned no text content", ErrMalformedOutput)
	}
	return text, nil
}

// OpenAIChat implements ChatClient with an OpenAI-compatible chat completions API
type OpenAIChat struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIChat creates an OpenAI chat client. baseURL may point at any
// OpenAI-compatible endpoint; empty keeps the default.
func NewOpenAIChat(apiKey, model, baseURL string, maxTokens int) *OpenAIChat {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIChat{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete implements ChatClient
func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := float32(0.1)
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: &temperature,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapProviderError(ctx, "openai", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai returned no choices", ErrMalformedOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapProviderError(ctx context.Context, provider string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s request aborted: %w", provider, ctxErr)
	}
	return fmt.Errorf("%w: %s request failed: %v", ErrTransport, provider, err)
}
