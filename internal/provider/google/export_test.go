// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package google

import (
	"google.golang.org/genai"

	"github.com/glyph-dev/glyph/internal/provider"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]*genai.Content, string, error) {
	return convertMessages(msgs)
}

// DecodeResponse exposes decodeResponse for white-box testing.
var DecodeResponse = decodeResponse

// ConvertTools exposes convertTools for white-box testing.
var ConvertTools = convertTools
