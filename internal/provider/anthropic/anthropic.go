// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package anthropic adapts the canonical message representation to the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Config holds Anthropic adapter configuration.
type Config struct {
	APIKey      string
	BaseURL     string // optional, useful for testing against a mock server
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Adapter implements provider.Adapter using the Anthropic Messages API.
type Adapter struct {
	client anthropicsdk.Client
	config Config
}

// New creates a new Anthropic adapter. Returns an error if the API key is missing.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, glypherr.New(glypherr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-5"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Adapter{
		client: anthropicsdk.NewClient(opts...),
		config: cfg,
	}, nil
}

func (a *Adapter) Name() string { return "anthropic" }

// Send performs a single non-streaming completion call.
func (a *Adapter) Send(ctx context.Context, history []provider.Message, tools []provider.ToolDefinition) (*provider.Message, error) {
	params, err := buildParams(a.config, history, tools)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeProviderRequestInvalid,
			"anthropic: building request params")
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	return decodeMessage(msg)
}

// buildParams converts canonical history and tool definitions into
// Anthropic SDK MessageNewParams.
func buildParams(cfg Config, history []provider.Message, tools []provider.ToolDefinition) (anthropicsdk.MessageNewParams, error) {
	msgs, system, err := convertMessages(history)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(cfg.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}

	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{
			{Text: system},
		}
	}

	if cfg.Temperature != nil {
		params.Temperature = anthropicsdk.Float(*cfg.Temperature)
	}

	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	return params, nil
}

// convertMessages transforms the canonical transcript into Anthropic SDK
// MessageParam slices. System messages collapse into the top-level system
// string. Tool results ride as tool_result blocks inside user messages;
// consecutive tool results are coalesced into a single user message so
// every tool_use in the preceding assistant turn is answered in one turn.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, string, error) {
	var result []anthropicsdk.MessageParam
	var system string
	var pendingResults []anthropicsdk.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			result = append(result, anthropicsdk.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleSystem:
			flushResults()
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		case provider.RoleUser:
			flushResults()
			result = append(result, anthropicsdk.NewUserMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))

		case provider.RoleAssistant:
			flushResults()
			blocks := assistantBlocks(msg)
			if len(blocks) == 0 {
				continue
			}
			result = append(result, anthropicsdk.NewAssistantMessage(blocks...))

		case provider.RoleTool:
			pendingResults = append(pendingResults,
				anthropicsdk.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))

		default:
			return nil, "", glypherr.Errorf(glypherr.CodeProviderRequestInvalid,
				"anthropic: unsupported message role %q", msg.Role)
		}
	}
	flushResults()

	return result, system, nil
}

// assistantBlocks rebuilds an assistant turn's content blocks, replaying
// any tool calls as tool_use blocks so the API accepts the paired
// tool_result blocks that follow.
func assistantBlocks(msg provider.Message) []anthropicsdk.ContentBlockParamUnion {
	var blocks []anthropicsdk.ContentBlockParamUnion
	if msg.Content != "" {
		blocks = append(blocks, anthropicsdk.NewTextBlock(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		blocks = append(blocks, anthropicsdk.NewToolUseBlock(call.ID, decodeArguments(call.Arguments), call.Name))
	}
	return blocks
}

// decodeArguments parses a tool call's JSON argument string. Malformed
// argument text is preserved under a reserved key rather than dropped, so
// the transcript replays faithfully.
func decodeArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{"_raw_arguments": raw}
	}
	return m
}

// convertTools transforms canonical tool definitions into Anthropic SDK tool params.
func convertTools(tools []provider.ToolDefinition) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := extractSchema(t.InputSchema)
		result = append(result, anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.Opt(t.Description),
				InputSchema: schema,
			},
		})
	}
	return result
}

// extractSchema maps a ToolDefinition.InputSchema (a full JSON Schema object
// with keys like "type", "properties", "required") into the Anthropic SDK's
// ToolInputSchemaParam, which expects Properties and Required as separate fields.
func extractSchema(raw map[string]any) anthropicsdk.ToolInputSchemaParam {
	schema := anthropicsdk.ToolInputSchemaParam{}
	if props, ok := raw["properties"]; ok {
		schema.Properties = props
	}
	if req, ok := raw["required"]; ok {
		if arr, ok := req.([]any); ok {
			strs := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok {
					strs = append(strs, s)
				}
			}
			schema.Required = strs
		}
	}
	return schema
}

// decodeMessage converts an Anthropic API response into the canonical
// assistant message. Thinking blocks stay separate from visible content.
func decodeMessage(msg *anthropicsdk.Message) (*provider.Message, error) {
	if msg == nil {
		return nil, glypherr.New(glypherr.CodeProviderResponseInvalid,
			"anthropic: empty response")
	}

	out := &provider.Message{Role: provider.RoleAssistant}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += b.Text
		case anthropicsdk.ThinkingBlock:
			if out.Thinking != "" {
				out.Thinking += "\n"
			}
			out.Thinking += b.Thinking
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: string(b.Input),
			})
		}
	}

	if out.Content == "" && out.Thinking == "" && len(out.ToolCalls) == 0 {
		return nil, glypherr.New(glypherr.CodeProviderResponseInvalid,
			"anthropic: response carried no usable content blocks",
			glypherr.Field("stop_reason", string(msg.StopReason)))
	}

	return out, nil
}

// mapError classifies SDK errors into the provider error taxonomy.
func mapError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		code := provider.CodeForStatus(apiErr.StatusCode)
		return glypherr.Wrap(err, code, "anthropic: request failed",
			glypherr.FieldProvider("anthropic"),
			glypherr.Field("status", apiErr.StatusCode))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return glypherr.Wrap(err, glypherr.CodeAgentCancelled, "anthropic: request cancelled")
	}
	return glypherr.Wrap(err, glypherr.CodeProviderNetworkFailure,
		"anthropic: request failed",
		glypherr.FieldProvider("anthropic"))
}
