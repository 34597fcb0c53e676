package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/fieldtrial/pkg/buildinfo"
	"github.com/matzehuels/fieldtrial/pkg/errors"
	"github.com/matzehuels/fieldtrial/pkg/field/geo"
	"github.com/matzehuels/fieldtrial/pkg/field/table"
	"github.com/matzehuels/fieldtrial/pkg/pipeline"
	"github.com/matzehuels/fieldtrial/pkg/store"
)

// contentTypes maps output formats to response media types.
var contentTypes = map[string]string{
	pipeline.FormatCSV:       "text/csv; charset=utf-8",
	pipeline.FormatJSON:      "application/json",
	pipeline.FormatSVG:       "image/svg+xml",
	pipeline.FormatPNG:       "image/png",
	pipeline.FormatPDF:       "application/pdf",
	pipeline.FormatFieldbook: "application/pdf",
	pipeline.FormatDOT:       "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatAdjacency: "image/svg+xml",
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// layoutResponse is returned when a layout is created.
type layoutResponse struct {
	*store.Run
	Cached         bool            `json:"cached"`
	GenerateMillis int64           `json:"generate_ms"`
	Table          json.RawMessage `json:"table"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := buildinfo.Get()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": info.Version,
		"commit":  info.Short(),
	})
}

func (s *Server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := pipeline.ParseJSON(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, err)
		return
	}

	res, hit, err := s.cfg.Runner.GenerateWithCacheInfo(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	run, err := store.FromResult(res, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.cfg.Store.SaveRun(r.Context(), run); err != nil {
		s.writeError(w, err)
		return
	}
	records, err := table.MarshalJSON(res.Table)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cfg.Logger.Info("created layout", "id", run.ID, "seed", run.Seed, "cells", run.Cells, "cached", hit)

	w.Header().Set("Location", "/v1/layouts/"+run.ID)
	writeJSON(w, http.StatusCreated, layoutResponse{
		Run:            run.Summary(),
		Cached:         hit,
		GenerateMillis: res.Stats.GenerateTime.Milliseconds(),
		Table:          records,
	})
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Name: r.URL.Query().Get("name")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	runs, err := s.cfg.Store.ListRuns(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	run, err := s.cfg.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRenderLayout regenerates a stored run from its options and seed and
// renders one format.
func (s *Server) handleRenderLayout(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, err)
		return
	}
	run, err := s.cfg.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := run.Options()
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts.Formats = []string{format}
	opts.Labels = r.URL.Query().Get("labels") == "true"

	res, err := s.cfg.Runner.Generate(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if id, err := uuid.Parse(run.ID); err == nil {
		res.ID = id
	}
	artifacts, err := s.cfg.Runner.Render(r.Context(), res, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// handleAnchor shifts a posted CSV table so the anchor block starts at the
// given latitude. The block defaults to T0.
func (s *Server) handleAnchor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dms := q.Get("dms")
	if dms == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "dms query parameter is required"))
		return
	}
	block := 0
	if v := q.Get("block"); v != "" {
		id, err := table.ParseBlockName(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		block = id
	}
	feetPerDegree := geo.FeetPerDegreeLatitude
	if v := q.Get("feet_per_degree"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid feet_per_degree %q", v))
			return
		}
		feetPerDegree = f
	}

	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tbl, err := table.ReadCSV(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, err)
		return
	}
	shifted, err := geo.ApplyString(tbl, dms, block, feetPerDegree)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(shifted, &buf); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[pipeline.FormatCSV])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	return body, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: string(code), Message: errors.UserMessage(err)})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidInput,
		errors.ErrCodeParse, errors.ErrCodeUnknownLabel:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConstraintExhausted:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
