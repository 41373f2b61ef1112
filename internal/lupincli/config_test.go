// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func TestDefaultGlobalConfig(t *testing.T) {
	got := defaultGlobalConfig()
	if got.Listen == "" {
		t.Error("defaultGlobalConfig().Listen is empty")
	}
	if got.CacheSize <= 0 {
		t.Errorf("defaultGlobalConfig().CacheSize = %d; want >0", got.CacheSize)
	}
	if err := got.validate(); err != nil {
		t.Error("defaultGlobalConfig().validate():", err)
	}
}

func TestGlobalConfigMergeFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "config1.jwcc"),
		filepath.Join(dir, "missing.jwcc"),
		filepath.Join(dir, "config2.jwcc"),
	}
	const config1 = `{
		// Comments and trailing commas are permitted.
		"debug": true,
		"maxDepth": 50,
		"listen": "localhost:9000",
		"someFutureSetting": {"x": [1, 2]},
	}`
	if err := os.WriteFile(paths[0], []byte(config1), 0o666); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(paths[2], []byte(`{"maxDepth": 75, "cacheDB": ""}`+"\n"), 0o666); err != nil {
		t.Fatal(err)
	}

	g := &globalConfig{CacheDB: "/tmp/cache.db", CacheSize: 10}
	if err := g.mergeFiles(slices.Values(paths)); err != nil {
		t.Error("mergeFiles:", err)
	}
	want := &globalConfig{
		Debug:     true,
		CacheDB:   "",
		CacheSize: 10,
		MaxDepth:  75,
		Listen:    "localhost:9000",
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestGlobalConfigMergeFileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"NotObject", `[]`},
		{"BadSyntax", `{"debug": }`},
		{"WrongType", `{"maxDepth": "deep"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.jwcc")
			if err := os.WriteFile(path, []byte(test.data), 0o666); err != nil {
				t.Fatal(err)
			}
			g := defaultGlobalConfig()
			if err := g.mergeFile(path); err == nil {
				t.Errorf("mergeFile(%q) did not return an error", test.data)
			}
		})
	}
}

func TestGlobalConfigMergeEnvironment(t *testing.T) {
	t.Run("Set", func(t *testing.T) {
		t.Setenv("LUPIN_CACHE", "/var/cache/lupin.db")
		t.Setenv("LUPIN_MAX_DEPTH", "42")
		t.Setenv("LUPIN_LISTEN", ":1234")
		g := defaultGlobalConfig()
		if err := g.mergeEnvironment(); err != nil {
			t.Fatal(err)
		}
		if got, want := g.CacheDB, "/var/cache/lupin.db"; got != want {
			t.Errorf("CacheDB = %q; want %q", got, want)
		}
		if got, want := g.MaxDepth, 42; got != want {
			t.Errorf("MaxDepth = %d; want %d", got, want)
		}
		if got, want := g.Listen, ":1234"; got != want {
			t.Errorf("Listen = %q; want %q", got, want)
		}
	})

	t.Run("EmptyCacheDisables", func(t *testing.T) {
		t.Setenv("LUPIN_CACHE", "")
		g := &globalConfig{CacheDB: "/tmp/cache.db"}
		if err := g.mergeEnvironment(); err != nil {
			t.Fatal(err)
		}
		if g.CacheDB != "" {
			t.Errorf("CacheDB = %q; want \"\"", g.CacheDB)
		}
	})

	t.Run("BadDepth", func(t *testing.T) {
		t.Setenv("LUPIN_MAX_DEPTH", "many")
		g := defaultGlobalConfig()
		if err := g.mergeEnvironment(); err == nil {
			t.Error("mergeEnvironment() did not return an error")
		}
	})
}

func TestGlobalConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(g *globalConfig)
	}{
		{"NegativeDepth", func(g *globalConfig) { g.MaxDepth = -1 }},
		{"NegativeCacheSize", func(g *globalConfig) { g.CacheSize = -1 }},
		{"NoListen", func(g *globalConfig) { g.Listen = "" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := defaultGlobalConfig()
			test.modify(g)
			if err := g.validate(); err == nil {
				t.Error("validate() did not return an error")
			}
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.jwcc")
	if err := os.WriteFile(first, []byte(`{"maxDepth": 10, "listen": "first:1"}`), 0o666); err != nil {
		t.Fatal(err)
	}
	second := filepath.Join(dir, "second.jwcc")
	if err := os.WriteFile(second, []byte(`{"maxDepth": 20}`), 0o666); err != nil {
		t.Fatal(err)
	}

	g := defaultGlobalConfig()
	fset := pflag.NewFlagSet("lupin", pflag.ContinueOnError)
	fset.Var(&configFileFlag{g: g}, "config", "")
	fset.StringVar(&g.Listen, "listen", g.Listen, "")
	if err := fset.Parse([]string{"--config=" + first, "--listen=flag:2", "--config", second}); err != nil {
		t.Fatal(err)
	}
	if got, want := g.MaxDepth, 20; got != want {
		t.Errorf("MaxDepth = %d; want %d", got, want)
	}
	if got, want := g.Listen, "flag:2"; got != want {
		t.Errorf("Listen = %q; want %q", got, want)
	}

	if err := fset.Parse([]string{"--config", filepath.Join(dir, "missing.jwcc")}); err == nil {
		t.Error("--config with missing file did not return an error")
	}
}
