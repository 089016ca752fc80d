// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package compat adapts the canonical message representation to any
// OpenAI-compatible endpoint (OpenRouter, Ollama, vLLM and the like).
// The wire shape is Chat Completions; the base URL selects the vendor.
package compat

import (
	"context"
	"encoding/json"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Config holds configuration for an OpenAI-compatible endpoint.
type Config struct {
	Name        string // adapter name reported in transcripts and logs
	APIKey      string
	BaseURL     string // required, the vendor's /v1 root
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Adapter implements provider.Adapter against an OpenAI-compatible API.
type Adapter struct {
	client openaisdk.Client
	config Config
}

// New creates a compat adapter. The base URL is mandatory since there is
// no default vendor to point at.
func New(cfg Config) (*Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, glypherr.New(glypherr.CodeProviderRequestInvalid,
			"compat: missing base_url in config")
	}
	if cfg.Model == "" {
		return nil, glypherr.New(glypherr.CodeProviderRequestInvalid,
			"compat: missing model in config")
	}
	if cfg.Name == "" {
		cfg.Name = "compat"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
	}
	// Local servers such as Ollama accept unauthenticated requests.
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Adapter{
		client: openaisdk.NewClient(opts...),
		config: cfg,
	}, nil
}

func (a *Adapter) Name() string { return a.config.Name }

// Send performs a single non-streaming completion call.
func (a *Adapter) Send(ctx context.Context, history []provider.Message, tools []provider.ToolDefinition) (*provider.Message, error) {
	params, err := buildParams(a.config, history, tools)
	if err != nil {
		return nil, glypherr.Wrapf(err, glypherr.CodeProviderRequestInvalid,
			"%s: building request params", a.config.Name)
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.mapError(err)
	}

	return a.decodeCompletion(completion)
}

func buildParams(cfg Config, history []provider.Message, tools []provider.ToolDefinition) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(history)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(cfg.Model),
		Messages: msgs,
	}

	if cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		params.Temperature = param.NewOpt(*cfg.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	return params, nil
}

func convertMessages(msgs []provider.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	var result []openaisdk.ChatCompletionMessageParamUnion

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		case provider.RoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))
		case provider.RoleAssistant:
			result = append(result, assistantParam(msg))
		case provider.RoleTool:
			result = append(result, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			return nil, glypherr.Errorf(glypherr.CodeProviderRequestInvalid,
				"compat: unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}

func assistantParam(msg provider.Message) openaisdk.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openaisdk.AssistantMessage(msg.Content)
	}

	assistant := openaisdk.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = param.NewOpt(msg.Content)
	}
	for _, call := range msg.ToolCalls {
		args := call.Arguments
		if args == "" {
			args = "{}"
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func convertTools(tools []provider.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		result = append(result, openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.InputSchema),
			},
		})
	}
	return result
}

func (a *Adapter) decodeCompletion(completion *openaisdk.ChatCompletion) (*provider.Message, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, glypherr.Errorf(glypherr.CodeProviderResponseInvalid,
			"%s: response carried no choices", a.config.Name)
	}

	choice := completion.Choices[0]
	out := &provider.Message{
		Role:     provider.RoleAssistant,
		Content:  choice.Message.Content,
		Thinking: extractReasoning(choice.Message),
	}

	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if out.Content == "" && out.Thinking == "" && len(out.ToolCalls) == 0 {
		return nil, glypherr.Errorf(glypherr.CodeProviderResponseInvalid,
			"%s: response message was empty", a.config.Name)
	}

	return out, nil
}

// extractReasoning pulls vendor reasoning text out of the response's extra
// fields. DeepSeek-style servers use reasoning_content, OpenRouter uses
// reasoning. Either way it stays out of the visible content.
func extractReasoning(msg openaisdk.ChatCompletionMessage) string {
	for _, key := range []string{"reasoning_content", "reasoning"} {
		field, ok := msg.JSON.ExtraFields[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal([]byte(field.Raw()), &text); err == nil && text != "" {
			return text
		}
	}
	return ""
}

func (a *Adapter) mapError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		code := provider.CodeForStatus(apiErr.StatusCode)
		return glypherr.Wrapf(err, code, "%s: request failed", a.config.Name)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return glypherr.Wrapf(err, glypherr.CodeAgentCancelled, "%s: request cancelled", a.config.Name)
	}
	return glypherr.Wrapf(err, glypherr.CodeProviderNetworkFailure,
		"%s: request failed", a.config.Name)
}
