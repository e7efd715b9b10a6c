// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"iter"
	"os"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/chatkit-ai/chatkit-go/internal/xiter"
	"github.com/chatkit-ai/chatkit-go/types"
)

const (
	// ClaudeDefaultModel is the default model name for [Claude].
	ClaudeDefaultModel = anthropic.ModelClaude3_5HaikuLatest

	// EnvAnthropicAPIKey is the environment variable name for the Anthropic API key.
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"

	// claudeDefaultMaxTokens is used when the request does not cap the
	// completion length; the Anthropic API requires max_tokens.
	claudeDefaultMaxTokens = 4096
)

// Claude is a chat backend over the Anthropic Messages API.
type Claude struct {
	model           string
	anthropicClient anthropic.Client
}

var _ Model = (*Claude)(nil)

// NewClaude creates a new Claude model instance.
//
// If apiKey is empty, the [EnvAnthropicAPIKey] environment variable is used.
func NewClaude(ctx context.Context, apiKey, modelName string) (*Claude, error) {
	if apiKey == "" {
		envAPIKey := os.Getenv(EnvAnthropicAPIKey)
		if envAPIKey == "" {
			return nil, fmt.Errorf("either apiKey arg or %q environment variable must be set", EnvAnthropicAPIKey)
		}
		apiKey = envAPIKey
	}

	if modelName == "" {
		modelName = string(ClaudeDefaultModel)
	}

	return &Claude{
		model:           modelName,
		anthropicClient: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name implements [Model].
func (m *Claude) Name() string {
	return m.model
}

// SupportedModels implements [Model].
func (m *Claude) SupportedModels() []string {
	return []string{
		string(anthropic.ModelClaude3_7SonnetLatest),
		string(anthropic.ModelClaude3_7Sonnet20250219),
		string(anthropic.ModelClaude3_5HaikuLatest),
		string(anthropic.ModelClaude3_5Haiku20241022),
		string(anthropic.ModelClaude3_5SonnetLatest),
		string(anthropic.ModelClaude3_5Sonnet20241022),
		string(anthropic.ModelClaude3OpusLatest),
	}
}

// messageParams converts a [Request] to Anthropic message parameters.
func (m *Claude) messageParams(req *Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Turns))
	for _, turn := range req.Turns {
		role := anthropic.MessageParamRoleUser
		if turn.Role == types.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(turn.Text)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		Messages:  messages,
		MaxTokens: claudeDefaultMaxTokens,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Text: req.System,
				Type: constant.ValueOf[constant.Text]().Default(),
			},
		}
	}

	return params
}

// Generate implements [Model].
func (m *Claude) Generate(ctx context.Context, req *Request) (*Response, error) {
	message, err := m.anthropicClient.Messages.New(ctx, m.messageParams(req))
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &Response{
		Text:  text,
		Usage: claudeUsage(message.Usage),
	}, nil
}

// StreamGenerate implements [Model].
func (m *Claude) StreamGenerate(ctx context.Context, req *Request) iter.Seq2[*Chunk, error] {
	stream := m.anthropicClient.Messages.NewStreaming(ctx, m.messageParams(req))

	return func(yield func(*Chunk, error) bool) {
		var message anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				yield(nil, fmt.Errorf("accumulate claude event: %w", err))
				return
			}

			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta()
			if delta.Delta.Type != "text_delta" || delta.Delta.Text == "" {
				continue
			}
			if !yield(&Chunk{Text: delta.Delta.Text}, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(nil, fmt.Errorf("claude API error: %w", err))
			return
		}

		usage := claudeUsage(message.Usage)
		yield(&Chunk{Usage: &usage}, nil)
	}
}

func claudeUsage(usage anthropic.Usage) types.TokenUsage {
	return types.TokenUsage{
		Prompt:     usage.InputTokens,
		Completion: usage.OutputTokens,
		Total:      usage.InputTokens + usage.OutputTokens,
	}
}

// errStream is a convenience for constructors that fail before streaming.
func errStream(err error) iter.Seq2[*Chunk, error] {
	return xiter.Error[Chunk](err)
}
