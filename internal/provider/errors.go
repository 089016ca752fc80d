// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package provider

import (
	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// CodeForStatus maps an HTTP status from a provider API into the canonical
// provider error taxonomy. Statuses outside the known set are treated as
// transient network failures so the retry layer gets a chance at them.
func CodeForStatus(status int) glypherr.Code {
	switch {
	case status == 401 || status == 403:
		return glypherr.CodeProviderAuthFailure
	case status == 429:
		return glypherr.CodeProviderRateLimited
	case status == 400 || status == 404 || status == 413 || status == 422:
		return glypherr.CodeProviderRequestInvalid
	case status == 408 || status >= 500:
		return glypherr.CodeProviderNetworkFailure
	default:
		return glypherr.CodeProviderNetworkFailure
	}
}
