// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

// lupin parses Lua 5.4 source files.
package main

import (
	"context"
	"os"
	"os/signal"

	"zb.256lights.llc/lupin/internal/lupincli"
	"zombiezen.com/go/bass/sigterm"
	"zombiezen.com/go/log"
)

func main() {
	ignoreSIGPIPE()
	ctx, cancel := signal.NotifyContext(context.Background(), sigterm.Signals()...)
	err := lupincli.NewCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		lupincli.InitLogging(false)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}
