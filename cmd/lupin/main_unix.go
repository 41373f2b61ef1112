// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

//go:build unix

package main

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// ignoreSIGPIPE lets writes to a closed pipe fail with EPIPE
// so that output errors are reported like any other error.
func ignoreSIGPIPE() {
	signal.Ignore(unix.SIGPIPE)
}
