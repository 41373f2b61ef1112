// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package testcontext provides contexts for tests
// that route [zombiezen.com/go/log] output to the test log.
package testcontext

import (
	"context"
	"testing"

	"zombiezen.com/go/log/testlog"
)

// New returns a context that is canceled when the test finishes
// and that logs to tb.
func New(tb testing.TB) context.Context {
	return testlog.WithTB(tb.Context(), tb)
}

// WithCancel is like [New]
// but also returns a function that cancels the context early.
func WithCancel(tb testing.TB) (context.Context, context.CancelFunc) {
	return context.WithCancel(New(tb))
}
