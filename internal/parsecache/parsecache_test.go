// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package parsecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"zb.256lights.llc/lupin/internal/testcontext"
	"zombiezen.com/go/log/testlog"
)

func TestMain(m *testing.M) {
	testlog.Main(nil)
	os.Exit(m.Run())
}

func newTestCache(tb testing.TB) (*Cache, *fakeClock) {
	tb.Helper()
	c := Open(filepath.Join(tb.TempDir(), "cache.db"))
	tb.Cleanup(func() {
		if err := c.Close(); err != nil {
			tb.Error(err)
		}
	})
	clock := &fakeClock{t: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

type fakeClock struct {
	t time.Time
}

func (clock *fakeClock) now() time.Time {
	clock.t = clock.t.Add(time.Second)
	return clock.t
}

func TestNewKey(t *testing.T) {
	k := NewKey("x = 1", "chunk", "json")
	if k2 := NewKey("x = 1", "chunk", "json"); k != k2 {
		t.Errorf("NewKey is not deterministic: %v != %v", k, k2)
	}
	different := []Key{
		NewKey("x = 2", "chunk", "json"),
		NewKey("x = 1", "block", "json"),
		NewKey("x = 1", "chunk", "lua"),
		// Field boundaries must be unambiguous.
		NewKey("1", "chunk", "json x ="),
	}
	for i, other := range different {
		if other == k {
			t.Errorf("different[%d] = %v; want different from %v", i, other, k)
		}
	}
	if got := len(k.String()); got != 64 {
		t.Errorf("len(k.String()) = %d; want 64", got)
	}
}

func TestGetPut(t *testing.T) {
	ctx := testcontext.New(t)
	c, _ := newTestCache(t)

	k := NewKey("return 1", "chunk", "json")
	if got, found, err := c.Get(ctx, k); err != nil || found {
		t.Fatalf("Get(empty cache) = %q, %t, %v; want <nil>, false, <nil>", got, found, err)
	}

	want := []byte(`{"type":"Chunk"}`)
	if err := c.Put(ctx, k, want); err != nil {
		t.Fatal(err)
	}
	got, found, err := c.Get(ctx, k)
	if err != nil || !found {
		t.Fatalf("Get(...) = _, %t, %v; want _, true, <nil>", found, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get(...) (-want +got):\n%s", diff)
	}

	want = []byte("return 1\n")
	if err := c.Put(ctx, k, want); err != nil {
		t.Fatal(err)
	}
	got, _, err = c.Get(ctx, k)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get(...) after overwrite (-want +got):\n%s", diff)
	}

	empty := NewKey("", "chunk", "lua")
	if err := c.Put(ctx, empty, nil); err != nil {
		t.Fatal(err)
	}
	if got, found, err := c.Get(ctx, empty); err != nil || !found || len(got) != 0 {
		t.Errorf("Get(empty output) = %q, %t, %v; want \"\", true, <nil>", got, found, err)
	}
}

func TestPrune(t *testing.T) {
	ctx := testcontext.New(t)
	c, _ := newTestCache(t)

	keys := []Key{
		NewKey("a()", "chunk", "json"),
		NewKey("b()", "chunk", "json"),
		NewKey("c()", "chunk", "json"),
	}
	for _, k := range keys {
		if err := c.Put(ctx, k, []byte(k.String())); err != nil {
			t.Fatal(err)
		}
	}
	// Touch the oldest entry so that it survives.
	if _, _, err := c.Get(ctx, keys[0]); err != nil {
		t.Fatal(err)
	}

	n, err := c.Prune(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune(ctx, 2) = %d; want 1", n)
	}
	if got, err := c.Len(ctx); err != nil || got != 2 {
		t.Errorf("Len() = %d, %v; want 2, <nil>", got, err)
	}
	for i, wantFound := range []bool{true, false, true} {
		if _, found, err := c.Get(ctx, keys[i]); err != nil || found != wantFound {
			t.Errorf("Get(keys[%d]) = _, %t, %v; want _, %t, <nil>", i, found, err, wantFound)
		}
	}

	if _, err := c.Prune(ctx, -1); err == nil {
		t.Error("Prune(ctx, -1) did not return an error")
	}
}
