// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/glyph-dev/glyph/internal/tool"
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

const (
	defaultServerTimeout = 30 * time.Second
	minServerTimeout     = 5 * time.Second
	maxServerTimeout     = 300 * time.Second
)

// ServerConfig is one stdio server entry from a config file.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Timeout time.Duration
}

// mcpConfigFile matches the common `.mcp.json` layout.
type mcpConfigFile struct {
	MCPServers map[string]struct {
		Command    string   `json:"command"`
		Args       []string `json:"args"`
		TimeoutSec int      `json:"timeout_sec"`
	} `json:"mcpServers"`
}

// LoadConfig parses a `.mcp.json` file. Entries without a command are
// skipped; timeouts are clamped to a sane range.
func LoadConfig(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeConfigLoadReadFailure,
			"mcp: reading config", glypherr.FieldPath(path))
	}

	var doc mcpConfigFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeConfigParseInvalidFormat,
			"mcp: parsing config", glypherr.FieldPath(path))
	}

	names := make([]string, 0, len(doc.MCPServers))
	for name := range doc.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	var servers []ServerConfig
	for _, name := range names {
		entry := doc.MCPServers[name]
		command := strings.TrimSpace(entry.Command)
		if command == "" {
			continue
		}

		timeout := defaultServerTimeout
		if entry.TimeoutSec > 0 {
			timeout = time.Duration(entry.TimeoutSec) * time.Second
		}
		if timeout < minServerTimeout {
			timeout = minServerTimeout
		}
		if timeout > maxServerTimeout {
			timeout = maxServerTimeout
		}

		servers = append(servers, ServerConfig{
			Name:    strings.TrimSpace(name),
			Command: command,
			Args:    entry.Args,
			Timeout: timeout,
		})
	}
	return servers, nil
}

var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func sanitizeName(value string) string {
	cleaned := strings.Trim(nameSanitizer.ReplaceAllString(value, "_"), "_")
	if cleaned == "" {
		return "tool"
	}
	return strings.ToLower(cleaned)
}

// BridgedName is the registry name for a remote tool.
func BridgedName(server, toolName string) string {
	return sanitizeName(server) + "__" + sanitizeName(toolName)
}

// Caller is the client surface the bridge needs; *Client satisfies it.
type Caller interface {
	ListTools(ctx context.Context) ([]RemoteTool, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error)
}

// Bridge owns the registered remote tools of one session.
type Bridge struct {
	registered []string
	closers    []func() error
	logger     *slog.Logger
}

// NewBridge builds an empty bridge.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{logger: logger}
}

// ToolNames lists the registry names this bridge added.
func (b *Bridge) ToolNames() []string {
	out := make([]string, len(b.registered))
	copy(out, b.registered)
	return out
}

// Close shuts down every connected server.
func (b *Bridge) Close() error {
	var errs []error
	for _, closeFn := range b.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return glypherr.Join(errs...)
	}
	return nil
}

// Connect spawns one configured server, lists its tools, and registers each
// under the bridged name. Remote tools are treated as mutating: the spawned
// process is opaque, so every call goes through sandbox and approval like
// any other mutating tool.
func (b *Bridge) Connect(ctx context.Context, registry *tool.Registry, cfg ServerConfig) error {
	client, err := NewStdioClient(ctx, cfg.Command, cfg.Args, ClientInfo{Name: "glyph"})
	if err != nil {
		return err
	}
	b.closers = append(b.closers, client.Close)

	return b.Register(ctx, registry, cfg, client)
}

// Register lists tools from an already connected caller and adds them to
// the registry. Split from Connect so tests can drive it with an in-memory
// transport.
func (b *Bridge) Register(ctx context.Context, registry *tool.Registry, cfg ServerConfig, caller Caller) error {
	listCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	remote, err := caller.ListTools(listCtx)
	if err != nil {
		return err
	}

	for _, rt := range remote {
		if strings.TrimSpace(rt.Name) == "" {
			continue
		}

		name := BridgedName(cfg.Name, rt.Name)
		description := strings.TrimSpace(rt.Description)
		if description == "" {
			description = fmt.Sprintf("Call the %q tool on the %q MCP server.", rt.Name, cfg.Name)
		}

		var schema map[string]any
		if len(rt.InputSchema) > 0 {
			if err := json.Unmarshal(rt.InputSchema, &schema); err != nil {
				b.logger.Warn("skipping remote tool with malformed schema",
					"server", cfg.Name, "tool", rt.Name, "error", err)
				continue
			}
		}
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		spec := tool.Spec{
			Name:        name,
			Description: description,
			Parameters:  schema,
			Mutating:    true,
			Timeout:     cfg.Timeout,
			Handler:     b.handler(cfg, caller, rt.Name),
		}
		if err := registry.Register(spec); err != nil {
			return err
		}
		b.registered = append(b.registered, name)
		b.logger.Debug("registered remote tool", "server", cfg.Name, "tool", name)
	}
	return nil
}

func (b *Bridge) handler(cfg ServerConfig, caller Caller, remoteName string) tool.Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		result, err := caller.CallTool(ctx, remoteName, args)
		if err != nil {
			return "", err
		}

		text := result.Text()
		if text == "" {
			text = fmt.Sprintf("%s/%s returned an empty result", cfg.Name, remoteName)
		}
		if result.IsError {
			return "", glypherr.New(glypherr.CodeMCPCallFailure, text,
				glypherr.FieldTool(remoteName), glypherr.Field("server", cfg.Name))
		}
		return text, nil
	}
}
