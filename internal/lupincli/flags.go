// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"fmt"
	"strings"

	"zb.256lights.llc/lupin/luaparse"
)

// outputFormat is an enumeration of the ways a parse result can be rendered.
type outputFormat int

const (
	// formatJSON renders the syntax tree as JSON.
	formatJSON outputFormat = iota
	// formatLua renders the syntax tree as canonical Lua source.
	formatLua
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "json":
		return formatJSON, nil
	case "lua":
		return formatLua, nil
	default:
		return 0, fmt.Errorf("unknown format %q (must be one of json or lua)", s)
	}
}

func (f outputFormat) String() string {
	switch f {
	case formatJSON:
		return "json"
	case formatLua:
		return "lua"
	default:
		return fmt.Sprintf("outputFormat(%d)", int(f))
	}
}

// contentType returns the HTTP Content-Type for the format.
func (f outputFormat) contentType() string {
	if f == formatLua {
		return "text/x-lua; charset=utf-8"
	}
	return "application/json"
}

// formatFlag is a [github.com/spf13/pflag.Value] for an [outputFormat].
type formatFlag outputFormat

func (f *formatFlag) Type() string  { return "format" }
func (f formatFlag) String() string { return outputFormat(f).String() }
func (f formatFlag) Get() any       { return outputFormat(f) }

func (f *formatFlag) Set(s string) error {
	format, err := parseOutputFormat(s)
	if err != nil {
		return err
	}
	*f = formatFlag(format)
	return nil
}

// ruleFlag is a [github.com/spf13/pflag.Value] for a [luaparse.Rule].
type ruleFlag luaparse.Rule

func (f *ruleFlag) Type() string  { return "rule" }
func (f ruleFlag) String() string { return luaparse.Rule(f).String() }
func (f ruleFlag) Get() any       { return luaparse.Rule(f) }

func (f *ruleFlag) Set(s string) error {
	rule, err := luaparse.ParseRuleName(s)
	if err != nil {
		return err
	}
	*f = ruleFlag(rule)
	return nil
}
