// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"iter"
	"os"

	"google.golang.org/genai"

	"github.com/chatkit-ai/chatkit-go/types"
)

const (
	// GeminiDefaultModel is the default model name for [Gemini].
	GeminiDefaultModel = "gemini-2.0-flash"

	// EnvGoogleAPIKey is the environment variable name for the Google API key.
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

// Gemini is a chat backend over the Google GenAI API.
type Gemini struct {
	model       string
	genAIClient *genai.Client
}

var _ Model = (*Gemini)(nil)

// NewGemini creates a new Gemini model instance.
//
// If apiKey is empty, the [EnvGoogleAPIKey] environment variable is used.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if modelName == "" {
		modelName = GeminiDefaultModel
	}

	if apiKey == "" {
		envAPIKey := os.Getenv(EnvGoogleAPIKey)
		if envAPIKey == "" {
			return nil, fmt.Errorf("either apiKey arg or %q environment variable must be set", EnvGoogleAPIKey)
		}
		apiKey = envAPIKey
	}

	genAIClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		model:       modelName,
		genAIClient: genAIClient,
	}, nil
}

// Name implements [Model].
func (m *Gemini) Name() string {
	return m.model
}

// SupportedModels implements [Model].
//
// See https://ai.google.dev/gemini-api/docs/models.
func (m *Gemini) SupportedModels() []string {
	return []string{
		"gemini-2.5-flash-preview-04-17",
		"gemini-2.5-pro-preview-03-25",
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

// contents converts a [Request] to GenAI contents and config.
func (m *Gemini) contents(req *Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		role := genai.RoleUser
		if turn.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(turn.Text)},
		})
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	return contents, config
}

// Generate implements [Model].
func (m *Gemini) Generate(ctx context.Context, req *Request) (*Response, error) {
	contents, config := m.contents(req)

	response, err := m.genAIClient.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	return &Response{
		Text:  responseText(response),
		Usage: geminiUsage(response.UsageMetadata),
	}, nil
}

// StreamGenerate implements [Model].
func (m *Gemini) StreamGenerate(ctx context.Context, req *Request) iter.Seq2[*Chunk, error] {
	contents, config := m.contents(req)

	return func(yield func(*Chunk, error) bool) {
		stream := m.genAIClient.Models.GenerateContentStream(ctx, m.model, contents, config)

		var lastResp *genai.GenerateContentResponse
		for resp, err := range stream {
			if err != nil {
				yield(nil, fmt.Errorf("gemini API error: %w", err))
				return
			}
			if ctx.Err() != nil || resp == nil {
				return
			}
			lastResp = resp

			if text := responseText(resp); text != "" {
				if !yield(&Chunk{Text: text}, nil) {
					return
				}
			}
		}

		var usage types.TokenUsage
		if lastResp != nil {
			usage = geminiUsage(lastResp.UsageMetadata)
		}
		yield(&Chunk{Usage: &usage}, nil)
	}
}

// responseText extracts the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	return text
}

func geminiUsage(usage *genai.GenerateContentResponseUsageMetadata) types.TokenUsage {
	if usage == nil {
		return types.TokenUsage{}
	}
	return types.TokenUsage{
		Prompt:     int64(usage.PromptTokenCount),
		Completion: int64(usage.CandidatesTokenCount),
		Total:      int64(usage.TotalTokenCount),
	}
}
