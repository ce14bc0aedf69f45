package providers

import (
	"context"
	"strings"

	"github.com/notelab/sidechat/internal/chat"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const defaultMaxTokens = 4096

// AnthropicClient implements chat.CompletionClient against the Anthropic SDK.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates an Anthropic-backed completion client.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{client: anthropic.NewClient(apiKey)}
}

func anthropicMessages(messages []chat.Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(messages))
	for _, msg := range messages {
		role := anthropic.RoleUser
		if msg.Role == chat.RoleAssistant {
			role = anthropic.RoleAssistant
		}
		content := msg.Content
		if content == "" {
			// Anthropic rejects empty content blocks.
			content = " "
		}
		out = append(out, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(content)},
		})
	}
	return out
}

func (c *AnthropicClient) baseRequest(req chat.CompletionRequest) anthropic.MessagesRequest {
	maxTokens := defaultMaxTokens
	if req.Options.MaxOutputTokens > 0 {
		maxTokens = req.Options.MaxOutputTokens
	}

	base := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		Messages:  anthropicMessages(req.Messages),
		MaxTokens: maxTokens,
	}
	if req.Options.Temperature > 0 {
		temperature := req.Options.Temperature
		base.Temperature = &temperature
	}
	if req.SystemPrompt != "" {
		base.MultiSystem = []anthropic.MessageSystemPart{{
			Type: "text",
			Text: req.SystemPrompt,
		}}
	}
	return base
}

// Complete implements chat.CompletionClient.
func (c *AnthropicClient) Complete(ctx context.Context, req chat.CompletionRequest, onChunk chat.StreamFunc) (chat.CompletionResult, error) {
	if !req.Stream {
		resp, err := c.client.CreateMessages(ctx, c.baseRequest(req))
		if err != nil {
			return chat.CompletionResult{}, err
		}
		return chat.CompletionResult{
			Content: resp.GetFirstContentText(),
			Usage: &chat.Usage{
				Prompt:     resp.Usage.InputTokens,
				Completion: resp.Usage.OutputTokens,
				Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
		}, nil
	}

	var buf strings.Builder
	sreq := anthropic.MessagesStreamRequest{MessagesRequest: c.baseRequest(req)}
	sreq.OnContentBlockDelta = func(delta anthropic.MessagesEventContentBlockDeltaData) {
		if delta.Delta.Type == "text_delta" && delta.Delta.Text != nil {
			buf.WriteString(*delta.Delta.Text)
			if onChunk != nil {
				onChunk(*delta.Delta.Text)
			}
		}
	}

	resp, err := c.client.CreateMessagesStream(ctx, sreq)
	if err != nil {
		return chat.CompletionResult{}, err
	}

	result := chat.CompletionResult{Content: buf.String()}
	if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
		result.Usage = &chat.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return result, nil
}
