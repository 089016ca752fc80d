// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package compat

import (
	"github.com/glyph-dev/glyph/internal/provider"
	openaisdk "github.com/openai/openai-go"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	return convertMessages(msgs)
}

// ExtractReasoning exposes extractReasoning for white-box testing.
var ExtractReasoning = extractReasoning
