// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/tailscale/hujson"
)

// Default configuration values.
const (
	defaultListenAddress = "localhost:8080"
	defaultCacheSize     = 10000
)

type globalConfig struct {
	Debug bool `json:"debug"`
	// CacheDB is the path to the parse cache database.
	// An empty string disables the cache.
	CacheDB string `json:"cacheDB"`
	// CacheSize is the maximum number of entries kept in the parse cache.
	CacheSize int `json:"cacheSize"`
	// MaxDepth is the parser's nesting limit.
	// Zero uses the parser's default.
	MaxDepth int    `json:"maxDepth"`
	Listen   string `json:"listen"`
}

func defaultGlobalConfig() *globalConfig {
	g := &globalConfig{
		CacheSize: defaultCacheSize,
		Listen:    defaultListenAddress,
	}
	if cd := cacheDir(); cd != "" {
		g.CacheDB = filepath.Join(cd, "lupin", "cache.db")
	}
	return g
}

func (g *globalConfig) mergeEnvironment() error {
	if path, ok := os.LookupEnv("LUPIN_CACHE"); ok {
		g.CacheDB = path
	}
	if s := os.Getenv("LUPIN_MAX_DEPTH"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("LUPIN_MAX_DEPTH: %v", err)
		}
		g.MaxDepth = n
	}
	if addr := os.Getenv("LUPIN_LISTEN"); addr != "" {
		g.Listen = addr
	}
	return nil
}

// mergeFiles merges the configuration files at the given paths in order.
// Files that do not exist are skipped.
func (g *globalConfig) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		if err := g.mergeFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// mergeFile merges the HuJSON configuration file at path into g.
func (g *globalConfig) mergeFile(path string) error {
	huJSONData, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	jsonData, err := hujson.Standardize(huJSONData)
	if err != nil {
		return fmt.Errorf("read %s: %v", path, err)
	}
	if err := jsonv2.Unmarshal(jsonData, g, jsonv2.RejectUnknownMembers(false)); err != nil {
		return fmt.Errorf("read %s: %v", path, err)
	}
	return nil
}

// UnmarshalJSONFrom unmarshals the configuration object from the JSON decoder,
// merging any fields in the JSON object with existing values.
func (g *globalConfig) UnmarshalJSONFrom(in *jsontext.Decoder) error {
	tok, err := in.ReadToken()
	if err != nil {
		return err
	}
	if got := tok.Kind(); got != '{' {
		return fmt.Errorf("config must be an object not a %v", got)
	}

	for {
		keyToken, err := in.ReadToken()
		if err != nil {
			return err
		}
		switch kind := keyToken.Kind(); kind {
		case '}':
			return nil
		case '"':
			// Keep going.
		default:
			return fmt.Errorf("unexpected non-string key (%v) in object", kind)
		}

		k := keyToken.String()
		var field any
		switch k {
		case "debug":
			field = &g.Debug
		case "cacheDB":
			field = &g.CacheDB
		case "cacheSize":
			field = &g.CacheSize
		case "maxDepth":
			field = &g.MaxDepth
		case "listen":
			field = &g.Listen
		default:
			if reject, _ := jsonv2.GetOption(in.Options(), jsonv2.RejectUnknownMembers); reject {
				return fmt.Errorf("unmarshal config: unknown field %q", k)
			}
			if err := in.SkipValue(); err != nil {
				return err
			}
			continue
		}
		if err := jsonv2.UnmarshalDecode(in, field); err != nil {
			return fmt.Errorf("unmarshal config.%s: %w", k, err)
		}
	}
}

func (g *globalConfig) validate() error {
	if g.MaxDepth < 0 {
		return fmt.Errorf("max depth (%d) must not be negative", g.MaxDepth)
	}
	if g.CacheSize < 0 {
		return fmt.Errorf("cache size (%d) must not be negative", g.CacheSize)
	}
	if g.Listen == "" {
		return fmt.Errorf("listen address not set")
	}
	return nil
}

// configFiles returns the paths of the configuration files
// in increasing order of preference.
func configFiles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for dir := range systemConfigDirs() {
			if !yield(filepath.Join(dir, "lupin", "config.jwcc")) {
				return
			}
		}
	}
}

// configFileFlag is a [github.com/spf13/pflag.Value]
// that merges each named configuration file into a [globalConfig]
// as the flag is parsed.
type configFileFlag struct {
	g     *globalConfig
	paths []string
}

func (f *configFileFlag) Type() string   { return "path" }
func (f *configFileFlag) String() string { return fmt.Sprint(f.paths) }

func (f *configFileFlag) Set(path string) error {
	if err := f.g.mergeFile(path); err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	return nil
}
