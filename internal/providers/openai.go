package providers

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/notelab/sidechat/internal/chat"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIClient implements chat.CompletionClient against the OpenAI API or
// any OpenAI-compatible endpoint reachable through a base URL override.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an OpenAI-backed completion client. baseURL may be
// empty for the default endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(config)}
}

func openaiRequest(req chat.CompletionRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		content := msg.Content
		if content == "" {
			// The SDK serializes empty assistant content as null, which
			// the API rejects.
			content = " "
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: content})
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Options.MaxOutputTokens > 0 {
		out.MaxTokens = req.Options.MaxOutputTokens
	}
	if req.Options.Temperature > 0 {
		temperature := req.Options.Temperature
		out.Temperature = &temperature
	}
	return out
}

// Complete implements chat.CompletionClient.
func (c *OpenAIClient) Complete(ctx context.Context, req chat.CompletionRequest, onChunk chat.StreamFunc) (chat.CompletionResult, error) {
	if !req.Stream {
		resp, err := c.client.CreateChatCompletion(ctx, openaiRequest(req))
		if err != nil {
			return chat.CompletionResult{}, err
		}
		if len(resp.Choices) == 0 {
			return chat.CompletionResult{}, errors.New("openai: response contained no choices")
		}
		return chat.CompletionResult{
			Content: resp.Choices[0].Message.Content,
			Usage: &chat.Usage{
				Prompt:     resp.Usage.PromptTokens,
				Completion: resp.Usage.CompletionTokens,
				Total:      resp.Usage.TotalTokens,
			},
		}, nil
	}

	sreq := openaiRequest(req)
	sreq.Stream = true
	sreq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, sreq)
	if err != nil {
		return chat.CompletionResult{}, err
	}
	defer stream.Close()

	var buf strings.Builder
	var usage *chat.Usage
	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return chat.CompletionResult{Content: buf.String()}, err
		}
		// The final chunk may carry usage with no choices.
		if response.Usage != nil && response.Usage.TotalTokens > 0 {
			usage = &chat.Usage{
				Prompt:     response.Usage.PromptTokens,
				Completion: response.Usage.CompletionTokens,
				Total:      response.Usage.TotalTokens,
			}
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta
		if delta.Content != "" {
			buf.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(delta.Content)
			}
		}
	}

	return chat.CompletionResult{Content: buf.String(), Usage: usage}, nil
}
