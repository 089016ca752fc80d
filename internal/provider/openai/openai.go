// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package openai adapts the canonical message representation to the
// OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Config holds OpenAI adapter configuration.
type Config struct {
	APIKey      string
	BaseURL     string // optional, useful for testing against a mock server
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Adapter implements provider.Adapter using the OpenAI Chat Completions API.
type Adapter struct {
	client openaisdk.Client
	config Config
	name   string
}

// New creates a new OpenAI adapter. Returns an error if the API key is missing.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, glypherr.New(glypherr.CodeProviderRequestInvalid,
			"openai: missing api_key in config")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Adapter{
		client: openaisdk.NewClient(opts...),
		config: cfg,
		name:   "openai",
	}, nil
}

func (a *Adapter) Name() string { return a.name }

// Send performs a single non-streaming completion call.
func (a *Adapter) Send(ctx context.Context, history []provider.Message, tools []provider.ToolDefinition) (*provider.Message, error) {
	params, err := buildParams(a.config, history, tools)
	if err != nil {
		return nil, glypherr.Wrapf(err, glypherr.CodeProviderRequestInvalid,
			"%s: building request params", a.name)
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.mapError(err)
	}

	return a.decodeCompletion(completion)
}

// buildParams converts canonical history and tool definitions into OpenAI
// SDK ChatCompletionNewParams.
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

// convertMessages transforms the canonical transcript into OpenAI SDK
// message param slices. Tool results map onto the dedicated tool role,
// keyed by tool_call_id.
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
				"openai: unsupported message role %q", msg.Role)
		}
	}

	return result, nil
}

// assistantParam rebuilds an assistant turn, replaying tool calls so the
// API accepts the tool-role messages that answer them.
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

// convertTools transforms canonical tool definitions into OpenAI SDK tool params.
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

// decodeCompletion converts an OpenAI API response into the canonical
// assistant message.
func (a *Adapter) decodeCompletion(completion *openaisdk.ChatCompletion) (*provider.Message, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, glypherr.Errorf(glypherr.CodeProviderResponseInvalid,
			"%s: response carried no choices", a.name)
	}

	choice := completion.Choices[0]
	out := &provider.Message{
		Role:    provider.RoleAssistant,
		Content: choice.Message.Content,
	}

	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if out.Content == "" && len(out.ToolCalls) == 0 {
		return nil, glypherr.Errorf(glypherr.CodeProviderResponseInvalid,
			"%s: response message was empty", a.name)
	}

	return out, nil
}

// mapError classifies SDK errors into the provider error taxonomy.
func (a *Adapter) mapError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		code := provider.CodeForStatus(apiErr.StatusCode)
		return glypherr.Wrapf(err, code, "%s: request failed", a.name)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return glypherr.Wrapf(err, glypherr.CodeAgentCancelled, "%s: request cancelled", a.name)
	}
	return glypherr.Wrapf(err, glypherr.CodeProviderNetworkFailure,
		"%s: request failed", a.name)
}
