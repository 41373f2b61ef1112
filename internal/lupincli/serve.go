// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zb.256lights.llc/lupin/internal/hal"
	"zb.256lights.llc/lupin/luaparse"
	"zombiezen.com/go/log"
	"zombiezen.com/go/xcontext"
)

const (
	maxRequestSize  = 4 << 20
	shutdownTimeout = 10 * time.Second
	requestIDHeader = "X-Request-Id"
)

func newServeCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "serve [options]",
		Short:                 "run an HTTP parsing server",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.Flags().StringVar(&g.Listen, "listen", g.Listen, "TCP `address` to listen on if not socket-activated")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), g)
	}
	return c
}

func runServe(ctx context.Context, g *globalConfig) error {
	listeners, err := activation.Listeners()
	if err != nil {
		return fmt.Errorf("socket activation: %v", err)
	}
	if len(listeners) == 0 {
		l, err := net.Listen("tcp", g.Listen)
		if err != nil {
			return err
		}
		listeners = append(listeners, l)
	}

	cache := g.openCache(ctx)
	defer g.closeCache(ctx, cache)
	srv := &http.Server{
		Handler: newAPIHandler(&apiServer{
			renderer: &renderer{cache: cache},
			maxDepth: g.MaxDepth,
		}),
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		if l == nil {
			continue
		}
		log.Infof(ctx, "Listening on %v", l.Addr())
		closer := xcontext.CloseWhenDone(grpCtx, l)
		grp.Go(func() error {
			err := srv.Serve(l)
			closer.Close()
			if grpCtx.Err() != nil {
				return nil
			}
			return err
		})
	}
	err = grp.Wait()
	log.Infof(ctx, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Errorf(ctx, "Shutdown: %v", shutdownErr)
	}
	return err
}

// apiServer implements the HTTP parsing API.
type apiServer struct {
	renderer *renderer
	maxDepth int
}

// newAPIHandler returns the HTTP handler for srv,
// including request IDs, access logging, and panic recovery.
func newAPIHandler(srv *apiServer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/{$}", handlers.MethodHandler{
		http.MethodGet:  http.HandlerFunc(srv.index),
		http.MethodHead: http.HandlerFunc(srv.index),
	})
	mux.Handle("/healthz", handlers.MethodHandler{
		http.MethodGet:  http.HandlerFunc(srv.health),
		http.MethodHead: http.HandlerFunc(srv.health),
	})
	mux.Handle("/parse", handlers.MethodHandler{
		http.MethodPost: http.HandlerFunc(srv.parse),
	})

	var h http.Handler = mux
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, logRequest)
	return withRequestID(h)
}

// index serves a HAL document describing the API's endpoints.
func (srv *apiServer) index(w http.ResponseWriter, r *http.Request) {
	rules := make([]string, 0, int(luaparse.ExpressionRule)+1)
	for rule := luaparse.ChunkRule; rule <= luaparse.ExpressionRule; rule++ {
		rules = append(rules, rule.String())
	}
	res := &hal.Resource{
		Links: map[string]*hal.Link{
			hal.SelfRelationType: {HRef: "/"},
			"parse": {
				HRef:      "/parse{?rule,format,name}",
				Templated: true,
				Title:     "Parse Lua source in the request body",
			},
			"health": {HRef: "/healthz"},
		},
		Properties: map[string]jsontext.Value{
			"rules":   mustMarshalValue(rules),
			"formats": mustMarshalValue([]string{formatJSON.String(), formatLua.String()}),
		},
	}
	data, err := jsonv2.Marshal(res)
	if err != nil {
		srv.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", hal.MediaType)
	writeBody(w, r, http.StatusOK, append(data, '\n'))
}

func (srv *apiServer) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	writeBody(w, r, http.StatusOK, []byte("ok\n"))
}

// parse parses the request body as Lua source
// and responds with the rendered syntax tree.
func (srv *apiServer) parse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := &renderOptions{
		name:     "request",
		rule:     luaparse.ChunkRule,
		format:   formatJSON,
		maxDepth: srv.maxDepth,
	}
	query := r.URL.Query()
	if s := query.Get("rule"); s != "" {
		var err error
		opts.rule, err = luaparse.ParseRuleName(s)
		if err != nil {
			srv.writeError(w, r, http.StatusBadRequest, err)
			return
		}
	}
	if s := query.Get("format"); s != "" {
		var err error
		opts.format, err = parseOutputFormat(s)
		if err != nil {
			srv.writeError(w, r, http.StatusBadRequest, err)
			return
		}
	}
	if s := query.Get("name"); s != "" {
		opts.name = s
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			srv.writeError(w, r, http.StatusRequestEntityTooLarge, err)
		} else {
			srv.writeError(w, r, http.StatusBadRequest, err)
		}
		return
	}

	output, err := srv.renderer.render(ctx, string(body), opts)
	if parseErr := (*luaparse.Error)(nil); errors.As(err, &parseErr) {
		log.Debugf(ctx, "Request %s: %v", requestID(ctx), err)
		srv.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		srv.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", opts.format.contentType())
	writeBody(w, r, http.StatusOK, output)
}

// apiError is the JSON body of an error response.
type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"requestID,omitempty"`

	// Fields populated for parse errors.

	Kind     string   `json:"kind,omitempty"`
	Line     int      `json:"line,omitzero"`
	Column   int      `json:"column,omitzero"`
	Expected []string `json:"expected,omitempty"`
	Found    string   `json:"found,omitempty"`
}

func (srv *apiServer) writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	ctx := r.Context()
	if statusCode >= 500 {
		log.Errorf(ctx, "Request %s: %v", requestID(ctx), err)
	}
	body := &apiError{
		Error:     err.Error(),
		RequestID: requestID(ctx),
	}
	if parseErr := (*luaparse.Error)(nil); errors.As(err, &parseErr) {
		body.Kind = parseErr.Kind.String()
		body.Line = parseErr.Position.Line
		body.Column = parseErr.Position.Column
		body.Expected = parseErr.Expected
		body.Found = parseErr.Found
	}
	data, marshalErr := jsonv2.Marshal(body)
	if marshalErr != nil {
		log.Errorf(ctx, "Marshal error response: %v", marshalErr)
		http.Error(w, err.Error(), statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	writeBody(w, r, statusCode, append(data, '\n'))
}

// writeBody writes the response status and headers,
// followed by data unless the request is a HEAD request.
func writeBody(w http.ResponseWriter, r *http.Request, statusCode int, data []byte) {
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(statusCode)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Debugf(r.Context(), "Writing response: %v", err)
	}
}

func mustMarshalValue(v any) jsontext.Value {
	data, err := jsonv2.Marshal(v)
	if err != nil {
		panic(err)
	}
	return jsontext.Value(data)
}

type requestIDContextKey struct{}

// withRequestID assigns a random ID to each request,
// sending it back in the X-Request-Id response header.
func withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDContextKey{}, id)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestID returns the ID assigned to the request by [withRequestID]
// or the empty string if there is none.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// logRequest is a [handlers.LogFormatter] that logs to the default logger.
func logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	ctx := params.Request.Context()
	log.Infof(ctx, "%s %s %s -> %d (%d bytes) [%s]",
		params.Request.RemoteAddr,
		params.Request.Method,
		params.URL.RequestURI(),
		params.StatusCode,
		params.Size,
		requestID(ctx),
	)
}

// recoveryLogger is a [handlers.RecoveryHandlerLogger]
// that logs to the default logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(args ...any) {
	log.Errorf(context.Background(), "%s", strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}
