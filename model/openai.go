// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/chatkit-ai/chatkit-go/types"
)

const (
	// OpenAIDefaultModel is the default model name for [OpenAI].
	OpenAIDefaultModel = "gpt-4o-mini"

	// OpenAIDefaultBaseURL is the OpenAI API endpoint. Any
	// chat-completions-compatible endpoint can be substituted with
	// [OpenAI.WithBaseURL].
	OpenAIDefaultBaseURL = "https://api.openai.com/v1"

	// EnvOpenAIAPIKey is the environment variable name for the OpenAI API key.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// OpenAI is a chat backend over the OpenAI chat-completions wire protocol.
type OpenAI struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Model = (*OpenAI)(nil)

// NewOpenAI creates a new OpenAI model instance.
//
// If apiKey is empty, the [EnvOpenAIAPIKey] environment variable is used.
func NewOpenAI(ctx context.Context, apiKey, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		envAPIKey := os.Getenv(EnvOpenAIAPIKey)
		if envAPIKey == "" {
			return nil, fmt.Errorf("either apiKey arg or %q environment variable must be set", EnvOpenAIAPIKey)
		}
		apiKey = envAPIKey
	}

	if modelName == "" {
		modelName = OpenAIDefaultModel
	}

	return &OpenAI{
		model:   modelName,
		baseURL: OpenAIDefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// WithBaseURL points the client at a different chat-completions-compatible
// endpoint.
func (m *OpenAI) WithBaseURL(baseURL string) *OpenAI {
	m.baseURL = strings.TrimSuffix(baseURL, "/")
	return m
}

// WithHTTPClient replaces the underlying HTTP client.
func (m *OpenAI) WithHTTPClient(client *http.Client) *OpenAI {
	m.httpClient = client
	return m
}

// Name implements [Model].
func (m *OpenAI) Name() string {
	return m.model
}

// SupportedModels implements [Model].
func (m *OpenAI) SupportedModels() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4.1",
		"gpt-4.1-mini",
		"o3-mini",
		"o4-mini",
	}
}

// Wire types for the chat-completions protocol.

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIRequest struct {
	Model         string               `json:"model"`
	Messages      []openAIMessage      `json:"messages"`
	Temperature   *float64             `json:"temperature,omitempty"`
	MaxTokens     int                  `json:"max_tokens,omitempty"`
	Stream        bool                 `json:"stream"`
	StreamOptions *openAIStreamOptions `json:"stream_options,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
	Delta   openAIMessage `json:"delta"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   *openAIUsage   `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *OpenAI) newRequest(ctx context.Context, req *Request, stream bool) (*http.Request, error) {
	messages := make([]openAIMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: types.RoleSystem, Content: req.System})
	}
	for _, turn := range req.Turns {
		messages = append(messages, openAIMessage{Role: turn.Role, Content: turn.Text})
	}

	body := openAIRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if stream {
		body.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}

	bodyBytes, err := sonic.ConfigFastest.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat completions request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	return httpReq, nil
}

// Generate implements [Model].
func (m *OpenAI) Generate(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := m.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat completions response: %w", err)
	}

	var parsed openAIResponse
	if err := sonic.ConfigFastest.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal chat completions response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai API error: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error: unexpected status %s", resp.Status)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai API error: response has no choices")
	}

	out := &Response{Text: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		out.Usage = types.TokenUsage{
			Prompt:     parsed.Usage.PromptTokens,
			Completion: parsed.Usage.CompletionTokens,
			Total:      parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

// StreamGenerate implements [Model].
func (m *OpenAI) StreamGenerate(ctx context.Context, req *Request) iter.Seq2[*Chunk, error] {
	httpReq, err := m.newRequest(ctx, req, true)
	if err != nil {
		return errStream(err)
	}

	return func(yield func(*Chunk, error) bool) {
		resp, err := m.httpClient.Do(httpReq)
		if err != nil {
			yield(nil, fmt.Errorf("openai API error: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			var parsed openAIResponse
			if err := sonic.ConfigFastest.Unmarshal(data, &parsed); err == nil && parsed.Error != nil {
				yield(nil, fmt.Errorf("openai API error: %s: %s", parsed.Error.Type, parsed.Error.Message))
				return
			}
			yield(nil, fmt.Errorf("openai API error: unexpected status %s", resp.Status))
			return
		}

		var usage types.TokenUsage
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "data: [DONE]") {
				continue
			}
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}

			var parsed openAIResponse
			if err := sonic.ConfigFastest.Unmarshal([]byte(payload), &parsed); err != nil {
				yield(nil, fmt.Errorf("unmarshal stream response: %w", err))
				return
			}
			if parsed.Usage != nil {
				usage = types.TokenUsage{
					Prompt:     parsed.Usage.PromptTokens,
					Completion: parsed.Usage.CompletionTokens,
					Total:      parsed.Usage.TotalTokens,
				}
			}
			if len(parsed.Choices) == 0 || parsed.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(&Chunk{Text: parsed.Choices[0].Delta.Content}, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("read stream: %w", err))
			return
		}

		yield(&Chunk{Usage: &usage}, nil)
	}
}
