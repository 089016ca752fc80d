// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package openai

import (
	"github.com/glyph-dev/glyph/internal/provider"
	openaisdk "github.com/openai/openai-go"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = func(msgs []provider.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	return convertMessages(msgs)
}

// BuildParams exposes buildParams for white-box testing.
var BuildParams = buildParams

// AssistantParam exposes assistantParam for white-box testing.
var AssistantParam = assistantParam
