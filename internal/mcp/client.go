// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

// Package mcp speaks the tooling subset of the Model Context Protocol to
// external stdio servers and bridges their tools into the registry.
package mcp

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// protocolVersion is the MCP release the client announces. Servers commonly
// accept a range of versions.
const protocolVersion = "2024-11-05"

// Transport carries one JSON-RPC message at a time in each direction.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// ClientInfo identifies this process during the initialize handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the server's self-description from the handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RemoteTool mirrors the subset of the MCP tool schema the registry needs.
type RemoteTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Content is one part of a tool call result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the structured outcome of tools/call.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text joins the textual content parts with newlines.
func (r CallResult) Text() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type != "text" {
			continue
		}
		if trimmed := strings.TrimSpace(c.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}

// Client talks to one MCP server over a transport. Calls are serialized;
// the protocol here is strictly request/response with notifications skipped.
type Client struct {
	transport Transport
	info      ClientInfo

	idCounter  atomic.Uint64
	mu         sync.Mutex
	closed     atomic.Bool
	serverInfo ServerInfo
}

// NewClient performs the initialize handshake over the transport. On
// handshake failure the transport is closed.
func NewClient(ctx context.Context, transport Transport, info ClientInfo) (*Client, error) {
	if transport == nil {
		return nil, glypherr.New(glypherr.CodeMCPProtocolInvalid, "mcp: transport is nil")
	}
	if info.Name == "" {
		info.Name = "glyph"
	}
	if info.Version == "" {
		info.Version = "dev"
	}

	c := &Client{transport: transport, info: info}
	if err := c.initialize(ctx); err != nil {
		transport.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the transport. Idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.transport.Close()
}

// Server returns the handshake metadata.
func (c *Client) Server() ServerInfo { return c.serverInfo }

// ListTools fetches the server's tool list, following pagination cursors.
func (c *Client) ListTools(ctx context.Context) ([]RemoteTool, error) {
	var (
		cursor string
		tools  []RemoteTool
	)
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var resp struct {
			Tools      []RemoteTool `json:"tools"`
			NextCursor string       `json:"nextCursor,omitempty"`
		}
		if err := c.call(ctx, "tools/list", params, &resp); err != nil {
			return nil, err
		}

		tools = append(tools, resp.Tools...)
		if strings.TrimSpace(resp.NextCursor) == "" {
			return tools, nil
		}
		cursor = resp.NextCursor
	}
}

// CallTool invokes one tool. A result with IsError set is returned as-is;
// the bridge decides how to surface it.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error) {
	if strings.TrimSpace(name) == "" {
		return CallResult{}, glypherr.New(glypherr.CodeMCPCallFailure, "mcp: tool name is required")
	}

	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result CallResult
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return CallResult{}, err
	}
	return result, nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      c.info,
		"capabilities": map[string]any{
			"tools": map[string]bool{"list": true, "call": true},
		},
	}

	var resp struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}
	if err := c.call(ctx, "initialize", params, &resp); err != nil {
		return err
	}
	c.serverInfo = resp.ServerInfo
	return nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	id := strconv.FormatUint(c.idCounter.Add(1), 10)
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return glypherr.Wrap(err, glypherr.CodeMCPProtocolInvalid, "mcp: marshaling request")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return glypherr.New(glypherr.CodeMCPCallFailure, "mcp: client is closed")
	}
	if err := c.transport.Send(ctx, payload); err != nil {
		return glypherr.Wrap(err, glypherr.CodeMCPCallFailure, "mcp: sending request",
			glypherr.Field("method", method))
	}

	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			return glypherr.Wrap(err, glypherr.CodeMCPCallFailure, "mcp: reading response",
				glypherr.Field("method", method))
		}

		var env rpcEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return glypherr.Wrap(err, glypherr.CodeMCPProtocolInvalid, "mcp: decoding response")
		}

		// Server-initiated notifications interleave with responses; skip
		// them and keep waiting for our id.
		if env.Method != "" || env.ID == nil || *env.ID != id {
			continue
		}

		if env.Error != nil {
			return glypherr.New(glypherr.CodeMCPCallFailure, "mcp: server error",
				glypherr.Field("method", method),
				glypherr.Field("rpc_code", env.Error.Code),
				glypherr.Field("rpc_message", env.Error.Message))
		}
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return glypherr.Wrap(err, glypherr.CodeMCPProtocolInvalid, "mcp: decoding result")
			}
		}
		return nil
	}
}
