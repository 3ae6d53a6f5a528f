// Package server exposes the query runner over HTTP.
//
// Routes:
//
//	GET  /healthz          liveness and build information
//	GET  /v1/relations     registered relations
//	POST /v1/query         run a query; ?refresh=true skips the cache
//	POST /v1/describe      outline of a query; ?format=json|dot|svg
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with a
// status derived from the error code.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/relgraph/pkg/buildinfo"
	"github.com/matzehuels/relgraph/pkg/config"
	"github.com/matzehuels/relgraph/pkg/diagram"
	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/pipeline"
)

// HeaderRequestID carries the request ID in requests and responses.
const HeaderRequestID = "X-Request-Id"

// HeaderCache reports "hit" or "miss" for query responses.
const HeaderCache = "X-Cache"

// maxBodyBytes bounds query request bodies.
const maxBodyBytes = 1 << 20

// Catalog lists the relations a server can query. *config.Registry
// implements it.
type Catalog interface {
	Info() []config.Info
}

// Server serves the HTTP API.
type Server struct {
	runner  *pipeline.Runner
	catalog Catalog
	logger  *log.Logger
	router  chi.Router
}

// New returns a server that runs queries with runner.
func New(runner *pipeline.Runner, catalog Catalog, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{runner: runner, catalog: catalog, logger: logger}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/relations", s.handleRelations)
		r.Post("/query", s.handleQuery)
		r.Post("/describe", s.handleDescribe)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errs.New(errs.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody(errs.ErrCodeInvalidInput,
			"method "+r.Method+" not allowed"))
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleRelations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"relations": s.catalog.Info()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	res, err := s.runner.Execute(r.Context(), q, pipeline.Options{
		Refresh: refresh,
		Logger:  s.logger.With("request_id", RequestID(r.Context())),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if res.CacheHit {
		w.Header().Set(HeaderCache, "hit")
	} else {
		w.Header().Set(HeaderCache, "miss")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		outline, err := s.runner.Describe(q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outline)
		return
	}
	data, hit, err := s.runner.Diagram(r.Context(), q, format)
	if err != nil {
		writeError(w, err)
		return
	}
	if hit {
		w.Header().Set(HeaderCache, "hit")
	} else {
		w.Header().Set(HeaderCache, "miss")
	}
	if format == diagram.FormatSVG {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (pipeline.Query, error) {
	var q pipeline.Query
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		return q, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode query")
	}
	return q, q.Validate()
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(err error) int {
	code := errs.GetCode(err)
	switch {
	case strings.HasPrefix(string(code), "INVALID_"), code == errs.ErrCodeArityMismatch:
		return http.StatusBadRequest
	case strings.HasSuffix(string(code), "NOT_FOUND"):
		return http.StatusNotFound
	case code == errs.ErrCodeNoSuchOperation, code == errs.ErrCodeUnsupportedRelation:
		return http.StatusUnprocessableEntity
	case code == errs.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case code == errs.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type errorPayload struct {
	Error struct {
		Code    errs.Code `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

func errorBody(code errs.Code, msg string) errorPayload {
	var p errorPayload
	p.Error.Code = code
	p.Error.Message = msg
	return p
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, StatusFor(err), errorBody(code, errs.UserMessage(err)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
