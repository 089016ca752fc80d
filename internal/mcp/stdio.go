// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// stdioTransport frames JSON-RPC messages with Content-Length headers over
// a pair of pipes, LSP style.
type stdioTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	closers []io.Closer
	writeMu sync.Mutex
}

// NewStdioTransport wraps an in/out pipe pair as a Transport. Exported for
// tests that run the protocol over in-memory pipes.
func NewStdioTransport(in io.WriteCloser, out io.ReadCloser) Transport {
	return &stdioTransport{
		reader:  bufio.NewReader(out),
		writer:  in,
		closers: []io.Closer{in, out},
	}
}

func (t *stdioTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err := t.writer.Write(payload)
	return err
}

func (t *stdioTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	length := -1
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if rest, ok := strings.CutPrefix(strings.ToLower(line), "content-length:"); ok {
			length, err = strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return nil, glypherr.Wrap(err, glypherr.CodeMCPProtocolInvalid,
					"mcp: invalid content length header")
			}
		}
	}
	if length < 0 {
		return nil, glypherr.New(glypherr.CodeMCPProtocolInvalid, "mcp: missing Content-Length header")
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(t.reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *stdioTransport) Close() error {
	var err error
	for _, c := range t.closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// NewStdioClient spawns the server command and binds its stdin/stdout pipes
// to a client. Close on the returned client ends the session; the process is
// reaped by a background waiter that also unblocks pending reads.
func NewStdioClient(ctx context.Context, command string, args []string, info ClientInfo) (*Client, error) {
	if strings.TrimSpace(command) == "" {
		return nil, glypherr.New(glypherr.CodeMCPServerStartFailure, "mcp: server command is required")
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeMCPServerStartFailure, "mcp: stdout pipe")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeMCPServerStartFailure, "mcp: stdin pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, glypherr.Wrap(err, glypherr.CodeMCPServerStartFailure,
			"mcp: starting server", glypherr.Field("command", command))
	}

	transport := NewStdioTransport(stdin, stdout)
	client, err := NewClient(ctx, transport, info)
	if err != nil {
		transport.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	var once sync.Once
	go func() {
		_ = cmd.Wait()
		once.Do(func() { _ = transport.Close() })
	}()

	return client, nil
}
