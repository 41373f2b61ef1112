// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"zb.256lights.llc/lupin/internal/hal"
	"zb.256lights.llc/lupin/internal/parsecache"
	"zb.256lights.llc/lupin/internal/testcontext"
	"zb.256lights.llc/lupin/luaparse"
)

func newTestServer(tb testing.TB) *httptest.Server {
	tb.Helper()
	cache := parsecache.Open(filepath.Join(tb.TempDir(), "cache.db"))
	tb.Cleanup(func() {
		if err := cache.Close(); err != nil {
			tb.Error(err)
		}
	})
	srv := httptest.NewServer(newAPIHandler(&apiServer{
		renderer: &renderer{cache: cache},
	}))
	tb.Cleanup(srv.Close)
	return srv
}

func doRequest(tb testing.TB, req *http.Request) (*http.Response, string) {
	tb.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		tb.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tb.Fatal(err)
	}
	return resp, string(body)
}

func TestServeIndex(t *testing.T) {
	ctx := testcontext.New(t)
	srv := newTestServer(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, body := doRequest(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.Header.Get("Content-Type"); got != hal.MediaType {
		t.Errorf("Content-Type = %q; want %q", got, hal.MediaType)
	}
	if _, err := uuid.Parse(resp.Header.Get(requestIDHeader)); err != nil {
		t.Errorf("%s = %q: %v", requestIDHeader, resp.Header.Get(requestIDHeader), err)
	}

	res := new(hal.Resource)
	if err := jsonv2.Unmarshal([]byte(body), res); err != nil {
		t.Fatal(err)
	}
	parseLink := res.Link("parse")
	if parseLink == nil {
		t.Fatalf("index has no parse link:\n%s", body)
	}
	u, err := parseLink.Expand(map[string]string{
		"rule":   "expression",
		"format": "lua",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Follow the advertised link.
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+u.String(), strings.NewReader("a+b*c"))
	if err != nil {
		t.Fatal(err)
	}
	resp, body = doRequest(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %v status = %d; want %d\n%s", u, resp.StatusCode, http.StatusOK, body)
	}
	if want := "a + b * c\n"; body != want {
		t.Errorf("POST %v body = %q; want %q", u, body, want)
	}
	if got, want := resp.Header.Get("Content-Type"), formatLua.contentType(); got != want {
		t.Errorf("Content-Type = %q; want %q", got, want)
	}
}

func TestServeHealth(t *testing.T) {
	ctx := testcontext.New(t)
	srv := newTestServer(t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/healthz", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, body := doRequest(t, req)
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("GET /healthz = %d %q; want %d \"ok\\n\"", resp.StatusCode, body, http.StatusOK)
	}
}

func TestServeParse(t *testing.T) {
	ctx := testcontext.New(t)
	srv := newTestServer(t)

	t.Run("JSON", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/parse", strings.NewReader("return 1"))
		if err != nil {
			t.Fatal(err)
		}
		resp, body := doRequest(t, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d; want %d\n%s", resp.StatusCode, http.StatusOK, body)
		}
		if !strings.HasPrefix(body, `{"type":"Chunk"`) {
			t.Errorf("body = %q; want Chunk JSON object", body)
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/parse?name=test.lua", strings.NewReader("if a then"))
		if err != nil {
			t.Fatal(err)
		}
		resp, body := doRequest(t, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d; want %d\n%s", resp.StatusCode, http.StatusBadRequest, body)
		}
		var got apiError
		if err := jsonv2.Unmarshal([]byte(body), &got); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got.Error, "test.lua:1:") {
			t.Errorf("error = %q; want prefix \"test.lua:1:\"", got.Error)
		}
		if want := luaparse.SyntaxError.String(); got.Kind != want {
			t.Errorf("kind = %q; want %q", got.Kind, want)
		}
		if got.Line != 1 || got.Column != 10 {
			t.Errorf("position = %d:%d; want 1:10", got.Line, got.Column)
		}
		if diff := cmp.Diff([]string{"statement", "'return'", "'elseif'", "'else'", "'end'"}, got.Expected); diff != "" {
			t.Errorf("expected (-want +got):\n%s", diff)
		}
		if got.RequestID != resp.Header.Get(requestIDHeader) {
			t.Errorf("requestID = %q; want %q", got.RequestID, resp.Header.Get(requestIDHeader))
		}
	})

	t.Run("BadFormat", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/parse?format=xml", strings.NewReader("return"))
		if err != nil {
			t.Fatal(err)
		}
		resp, body := doRequest(t, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d; want %d\n%s", resp.StatusCode, http.StatusBadRequest, body)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		source := "return " + strings.Repeat(" ", maxRequestSize)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/parse", strings.NewReader(source))
		if err != nil {
			t.Fatal(err)
		}
		resp, body := doRequest(t, req)
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d; want %d\n%s", resp.StatusCode, http.StatusRequestEntityTooLarge, body)
		}
	})

	t.Run("WrongMethod", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/parse", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, _ := doRequest(t, req)
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d; want %d", resp.StatusCode, http.StatusMethodNotAllowed)
		}
	})
}
