// Package server exposes the filter parser over HTTP.
//
// GET /v1/{schema}/filter explains a query string: it returns the parsed
// condition tree, the SQL it compiles to, and the keys dropped in
// permissive mode. GET /v1/{schema}/records runs the same filter against
// a SQLite table named after the schema.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/roach88/qfilter/internal/condition"
	"github.com/roach88/qfilter/internal/filter"
	"github.com/roach88/qfilter/internal/querysql"
	"github.com/roach88/qfilter/internal/querystring"
	"github.com/roach88/qfilter/internal/schema"
	"github.com/roach88/qfilter/internal/store"
)

// Handler serves the filter API.
type Handler struct {
	registry *schema.Registry
	parser   *filter.Parser
	store    *store.Store
	logger   *slog.Logger
}

// Deps contains dependencies for the handler. Store is optional; without
// it the records endpoint is not mounted.
type Deps struct {
	Registry *schema.Registry
	Parser   *filter.Parser
	Store    *store.Store
	Logger   *slog.Logger
}

// NewHandler creates a new filter API handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		registry: deps.Registry,
		parser:   deps.Parser,
		store:    deps.Store,
		logger:   deps.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.parser == nil {
		h.parser = filter.NewParser(deps.Registry, filter.WithLogger(h.logger))
	}
	return h
}

// Router returns the HTTP routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/schemas", h.ListSchemas)
		r.Get("/{schema}/filter", h.Explain)
		if h.store != nil {
			r.Get("/{schema}/records", h.Records)
		}
	})
	return r
}

// SchemaList is the response of GET /v1/schemas.
type SchemaList struct {
	Schemas []string `json:"schemas"`
}

// Explanation is the response of GET /v1/{schema}/filter.
type Explanation struct {
	TraceID   string              `json:"trace_id"`
	Condition condition.Condition `json:"condition"`
	SQL       string              `json:"sql"`
	Params    []any               `json:"params"`
	Skipped   []*filter.Error     `json:"skipped"`
}

// RecordList is the response of GET /v1/{schema}/records.
type RecordList struct {
	TraceID string           `json:"trace_id"`
	Records []map[string]any `json:"records"`
	Skipped []*filter.Error  `json:"skipped"`
}

// ListSchemas returns the registered schema names.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchemaList{Schemas: h.registry.Names()})
}

// Explain parses the request filter and reports the condition and SQL.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()
	name := chi.URLParam(r, "schema")

	res, ok := h.parse(w, r, traceID, name)
	if !ok {
		return
	}

	sql, params, err := querysql.NewSQLCompiler().Compile(querysql.Select{From: name, Filter: res.Condition})
	if err != nil {
		h.logger.Error("compile failed", "trace_id", traceID, "schema", name, "error", err)
		writeError(w, http.StatusUnprocessableEntity, traceID, "compile_failed", err.Error())
		return
	}
	if params == nil {
		params = []any{}
	}

	writeJSON(w, http.StatusOK, Explanation{
		TraceID:   traceID,
		Condition: res.Condition,
		SQL:       sql,
		Params:    params,
		Skipped:   skipped(res),
	})
}

// Records runs the request filter against the schema's table.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()
	name := chi.URLParam(r, "schema")

	res, ok := h.parse(w, r, traceID, name)
	if !ok {
		return
	}

	records, err := h.store.Find(r.Context(), name, res.Condition)
	if err != nil {
		h.logger.Error("query failed", "trace_id", traceID, "schema", name, "error", err)
		writeError(w, http.StatusInternalServerError, traceID, "query_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, RecordList{
		TraceID: traceID,
		Records: records,
		Skipped: skipped(res),
	})
}

// parse runs the parser and writes the error response on failure.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request, traceID, name string) (*filter.Result, bool) {
	if _, ok := h.registry.Get(name); !ok {
		writeError(w, http.StatusNotFound, traceID, "schema_not_found", "unknown schema "+name)
		return nil, false
	}

	input, relations := querystring.FromRequest(r)
	res, err := h.parser.Parse(input, name, relations)
	if err != nil {
		var fe *filter.Error
		if errors.As(err, &fe) {
			h.logger.Info("filter rejected", "trace_id", traceID, "schema", name, "code", fe.Code, "key", fe.Key)
			writeError(w, http.StatusBadRequest, traceID, string(fe.Code), fe.Error())
			return nil, false
		}
		h.logger.Error("parse failed", "trace_id", traceID, "schema", name, "error", err)
		writeError(w, http.StatusInternalServerError, traceID, "internal", err.Error())
		return nil, false
	}

	h.logger.Debug("filter parsed",
		"trace_id", traceID,
		"schema", name,
		"condition", condition.Format(res.Condition),
		"skipped", len(res.Skipped))
	return res, true
}

func skipped(res *filter.Result) []*filter.Error {
	if res.Skipped == nil {
		return []*filter.Error{}
	}
	return res.Skipped
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, traceID, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"trace_id": traceID,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
