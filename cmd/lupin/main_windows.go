// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package main

func ignoreSIGPIPE() {}
