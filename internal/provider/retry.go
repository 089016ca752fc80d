// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyph Contributors

package provider

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	glypherr "github.com/glyph-dev/glyph/pkg/errors"
)

// RetryPolicy configures bounded exponential backoff for transient provider
// failures. Only rate_limit and network errors are retried; auth and
// invalid_response propagate immediately.
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryPolicy returns the default backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay calculates the backoff delay for attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if max := float64(p.MaxDelay); delay > max {
		delay = max
	}
	if p.Jitter {
		// +/- 50% jitter.
		delay *= 0.5 + rand.Float64()
	}
	return time.Duration(delay)
}

// RetryingAdapter wraps an Adapter with the retry policy. It implements
// Adapter itself so the agent loop stays unaware of retries.
type RetryingAdapter struct {
	inner  Adapter
	policy RetryPolicy
}

// WithRetry wraps adapter with the given policy.
func WithRetry(adapter Adapter, policy RetryPolicy) *RetryingAdapter {
	return &RetryingAdapter{inner: adapter, policy: policy}
}

func (r *RetryingAdapter) Name() string { return r.inner.Name() }

func (r *RetryingAdapter) Send(ctx context.Context, history []Message, tools []ToolDefinition) (*Message, error) {
	msg, err := r.inner.Send(ctx, history, tools)
	if err == nil {
		return msg, nil
	}

	for attempt := 0; attempt < r.policy.MaxRetries; attempt++ {
		if !glypherr.IsRetryable(err) {
			return nil, err
		}

		delay := r.policy.Delay(attempt)
		slog.Debug("retrying provider call",
			"provider", r.inner.Name(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, glypherr.Wrapf(ctx.Err(), glypherr.CodeAgentCancelled, "cancelled while waiting to retry %s", r.inner.Name())
		case <-time.After(delay):
		}

		msg, err = r.inner.Send(ctx, history, tools)
		if err == nil {
			return msg, nil
		}
	}

	return nil, err
}
