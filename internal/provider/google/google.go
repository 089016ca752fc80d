// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package google adapts the canonical message representation to the
// Google Gemini API.
package google

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/glyph-dev/glyph/internal/provider"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// Config holds Google adapter configuration.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Adapter implements provider.Adapter using the Google Gemini API.
type Adapter struct {
	client *genai.Client
	config Config
}

// New creates a new Google adapter. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, glypherr.New(glypherr.CodeProviderRequestInvalid,
			"google: missing api_key in config", glypherr.FieldProvider("google"))
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-pro"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeProviderNetworkFailure,
			"google: creating client")
	}

	return &Adapter{client: client, config: cfg}, nil
}

func (a *Adapter) Name() string { return "google" }

// Send performs a single non-streaming completion call.
func (a *Adapter) Send(ctx context.Context, history []provider.Message, tools []provider.ToolDefinition) (*provider.Message, error) {
	contents, system, err := convertMessages(history)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeProviderRequestInvalid,
			"google: converting messages")
	}

	config := buildConfig(a.config, system, tools)

	result, err := a.client.Models.GenerateContent(ctx, a.config.Model, contents, config)
	if err != nil {
		return nil, mapError(err)
	}

	return decodeResponse(result)
}

// buildConfig assembles the genai.GenerateContentConfig for one call.
func buildConfig(cfg Config, system string, tools []provider.ToolDefinition) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}

	if cfg.Temperature != nil {
		out.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		out.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if system != "" {
		out.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: system},
			},
		}
	}
	if len(tools) > 0 {
		out.Tools = convertTools(tools)
	}

	return out
}

// convertMessages transforms the canonical transcript into genai.Content
// slices. System messages collapse into the SystemInstruction text. Tool
// calls replay as FunctionCall parts on model turns; tool results become
// FunctionResponse parts on user turns, keyed by tool name since the
// Gemini wire format has no call IDs of its own.
func convertMessages(msgs []provider.Message) ([]*genai.Content, string, error) {
	var result []*genai.Content
	var system string

	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content

		case provider.RoleUser:
			result = append(result, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{
					{Text: msg.Content},
				},
			})

		case provider.RoleAssistant:
			parts := assistantParts(msg)
			if len(parts) == 0 {
				continue
			}
			result = append(result, &genai.Content{Role: "model", Parts: parts})

		case provider.RoleTool:
			response := map[string]any{"result": msg.Content}
			if msg.IsError {
				response = map[string]any{"error": msg.Content}
			}
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.ToolName,
					Response: response,
				},
			}
			// Consecutive tool results join the same user turn.
			if n := len(result); n > 0 && result[n-1].Role == "user" && isResponseContent(result[n-1]) {
				result[n-1].Parts = append(result[n-1].Parts, part)
			} else {
				result = append(result, &genai.Content{Role: "user", Parts: []*genai.Part{part}})
			}

		default:
			return nil, "", glypherr.Errorf(glypherr.CodeProviderRequestInvalid,
				"google: unsupported message role %q", msg.Role)
		}
	}

	return result, system, nil
}

func isResponseContent(c *genai.Content) bool {
	return len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// assistantParts rebuilds a model turn's parts, replaying tool calls as
// FunctionCall parts.
func assistantParts(msg provider.Message) []*genai.Part {
	var parts []*genai.Part
	if msg.Content != "" {
		parts = append(parts, &genai.Part{Text: msg.Content})
	}
	for _, call := range msg.ToolCalls {
		args, err := call.ArgumentsMap()
		if err != nil {
			args = map[string]any{"_raw_arguments": call.Arguments}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   call.ID,
				Name: call.Name,
				Args: args,
			},
		})
	}
	return parts
}

// convertTools transforms canonical tool definitions into genai.Tool slices.
func convertTools(tools []provider.ToolDefinition) []*genai.Tool {
	var decls []*genai.FunctionDeclaration
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.InputSchema,
		})
	}
	return []*genai.Tool{
		{FunctionDeclarations: decls},
	}
}

// decodeResponse converts a Gemini response into the canonical assistant
// message. Function calls arriving without an ID get a synthesized one so
// downstream result matching stays uniform across adapters.
func decodeResponse(result *genai.GenerateContentResponse) (*provider.Message, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, glypherr.New(glypherr.CodeProviderResponseInvalid,
			"google: response carried no candidates")
	}

	out := &provider.Message{Role: provider.RoleAssistant}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			if part.Thought {
				if out.Thinking != "" {
					out.Thinking += "\n"
				}
				out.Thinking += part.Text
				continue
			}
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, glypherr.Wrapf(err, glypherr.CodeProviderResponseInvalid,
					"google: marshaling arguments for %q", part.FunctionCall.Name)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}

	if out.Content == "" && out.Thinking == "" && len(out.ToolCalls) == 0 {
		return nil, glypherr.New(glypherr.CodeProviderResponseInvalid,
			"google: response carried no usable parts")
	}

	return out, nil
}

// mapError classifies SDK errors into the provider error taxonomy.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		code := provider.CodeForStatus(apiErr.Code)
		return glypherr.Wrap(err, code, "google: request failed",
			glypherr.FieldProvider("google"),
			glypherr.Field("status", apiErr.Code))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return glypherr.Wrap(err, glypherr.CodeAgentCancelled, "google: request cancelled")
	}
	return glypherr.Wrap(err, glypherr.CodeProviderNetworkFailure,
		"google: request failed", glypherr.FieldProvider("google"))
}
