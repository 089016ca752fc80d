// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package anthropic

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/glyph-dev/glyph/internal/provider"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]anthropicsdk.MessageParam, string, error) {
	return convertMessages(msgs)
}

// BuildParams exposes buildParams for white-box testing.
var BuildParams = buildParams

// DecodeArguments exposes decodeArguments for white-box testing.
var DecodeArguments = decodeArguments

// ExtractSchema exposes extractSchema for white-box testing.
var ExtractSchema = extractSchema
