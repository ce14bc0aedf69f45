package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notelab/sidechat/internal/chat"

	"github.com/hashicorp/go-retryablehttp"
)

// OllamaClient talks to a local OpenAI-compatible chat endpoint (Ollama,
// LM Studio) over its SSE streaming protocol. Transport-level failures are
// retried by the underlying client; a request that has started streaming is
// never retried.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaClient creates a client for the given base URL, e.g.
// "http://localhost:11434/v1".
func NewOllamaClient(baseURL string) *OllamaClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	client := retryClient.StandardClient()
	client.Timeout = 300 * time.Second

	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

type ollamaPayload struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`

	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type ollamaChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete implements chat.CompletionClient.
func (c *OllamaClient) Complete(ctx context.Context, req chat.CompletionRequest, onChunk chat.StreamFunc) (chat.CompletionResult, error) {
	msgs := req.Messages
	if req.SystemPrompt != "" {
		msgs = append([]chat.Message{{Role: "system", Content: req.SystemPrompt}}, msgs...)
	}
	payload := ollamaPayload{
		Model:       req.Model,
		Messages:    msgs,
		Stream:      req.Stream,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxOutputTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return chat.CompletionResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return chat.CompletionResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return chat.CompletionResult{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return chat.CompletionResult{}, fmt.Errorf("completion request failed (%s): %s", resp.Status, string(msg))
	}

	if !req.Stream {
		return c.readSingle(resp.Body)
	}
	return c.readStream(ctx, resp.Body, onChunk)
}

func (c *OllamaClient) readSingle(body io.Reader) (chat.CompletionResult, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return chat.CompletionResult{}, fmt.Errorf("failed to read response: %w", err)
	}
	var chunk ollamaChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return chat.CompletionResult{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chunk.Choices) == 0 {
		return chat.CompletionResult{}, fmt.Errorf("response contained no choices")
	}
	result := chat.CompletionResult{
		Content:          chunk.Choices[0].Message.Content,
		ReasoningContent: chunk.Choices[0].Message.ReasoningContent,
	}
	result.Usage = usageOf(&chunk)
	return result, nil
}

func (c *OllamaClient) readStream(ctx context.Context, body io.Reader, onChunk chat.StreamFunc) (chat.CompletionResult, error) {
	reader := bufio.NewReader(body)
	var content, reasoning strings.Builder
	var usage *chat.Usage

	for {
		if err := ctx.Err(); err != nil {
			return chat.CompletionResult{Content: content.String(), ReasoningContent: reasoning.String()}, err
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return chat.CompletionResult{Content: content.String(), ReasoningContent: reasoning.String()}, err
		}
		line = strings.TrimSpace(line)
		if line == "data: [DONE]" {
			break
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if u := usageOf(&chunk); u != nil {
			usage = u
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.ReasoningContent != "" {
			reasoning.WriteString(delta.ReasoningContent)
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(delta.Content)
			}
		}
	}

	return chat.CompletionResult{
		Content:          content.String(),
		ReasoningContent: reasoning.String(),
		Usage:            usage,
	}, nil
}

func usageOf(chunk *ollamaChunk) *chat.Usage {
	if chunk.Usage == nil || chunk.Usage.TotalTokens == 0 {
		return nil
	}
	return &chat.Usage{
		Prompt:     chunk.Usage.PromptTokens,
		Completion: chunk.Usage.CompletionTokens,
		Total:      chunk.Usage.TotalTokens,
	}
}
