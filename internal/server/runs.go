package server

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/pipeline"
	"github.com/Fraztahir/adsellix-audit/internal/store"
	"github.com/Fraztahir/adsellix-audit/internal/tabular"
)

// Multipart fields that are not report files.
const (
	fieldAsOf   = "as_of"
	fieldModel  = "model"
	fieldManual = "manual"
)

// createRun handles POST /api/runs. The body is multipart: one file part
// per report, named like a report spec head ("business",
// "business:prior_year", "ppc:2025-07-01..2025-09-30"), plus optional
// as_of, model (YAML) and manual (YAML) parts.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner == nil {
		writeError(w, http.StatusServiceUnavailable, "audit runner not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with report files", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	rc := pipeline.RunContext{Model: s.deps.Model, Manual: s.deps.Manual}
	if v := r.FormValue(fieldAsOf); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD", err.Error())
			return
		}
		rc.AsOf = t
	}

	if data, ok, err := formFile(r.MultipartForm, fieldModel); err != nil {
		writeError(w, http.StatusBadRequest, "unreadable model part", err.Error())
		return
	} else if ok {
		m, err := config.ParseModel(data)
		if err != nil {
			writeRunError(w, err)
			return
		}
		rc.Model = m
	}
	if data, ok, err := formFile(r.MultipartForm, fieldManual); err != nil {
		writeError(w, http.StatusBadRequest, "unreadable manual part", err.Error())
		return
	} else if ok {
		m, err := config.ParseManualInputs(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid manual inputs", err.Error())
			return
		}
		rc.Manual = m
	}

	reports, err := readReports(r.Context(), r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report upload", err.Error())
		return
	}
	if len(reports) == 0 {
		writeError(w, http.StatusBadRequest, "no report files uploaded")
		return
	}
	rc.Reports = reports

	run, err := s.deps.Runner.Execute(r.Context(), rc)
	var pe *pipeline.PartialResultsError
	switch {
	case err == nil, errors.As(err, &pe):
		writeJSON(w, http.StatusCreated, run)
	default:
		zap.L().Warn("server: audit failed", zap.Error(err))
		writeRunError(w, err)
	}
}

// writeRunError maps pipeline failures to status codes.
func writeRunError(w http.ResponseWriter, err error) {
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		writeError(w, http.StatusUnprocessableEntity, "invalid model configuration", ce.Problems...)
		return
	}
	writeError(w, http.StatusInternalServerError, "audit failed", err.Error())
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{Status: model.RunStatus(q.Get("status"))}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be >= 0")
			return
		}
		filter.Offset = n
	}

	runs, err := s.deps.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRecommendations(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	recs := []model.Recommendation{}
	if run.Result != nil && run.Result.Recommendations != nil {
		recs = run.Result.Recommendations
	}
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		if n < len(recs) {
			recs = recs[:n]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": run.ID, "status": run.Status, "recommendations": recs})
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return nil, false
	}
	id := chi.URLParam(r, "runID")
	run, err := s.deps.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("server: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return nil, false
	}
	return run, true
}

// readReports parses every report part. Parts are read in field-name
// order so identical uploads produce identical runs.
func readReports(ctx context.Context, form *multipart.Form) ([]pipeline.Report, error) {
	names := make([]string, 0, len(form.File))
	for name := range form.File {
		if name == fieldModel || name == fieldManual {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var reports []pipeline.Report
	for _, name := range names {
		rt, period, err := pipeline.ParseReportHead(name)
		if err != nil {
			return nil, err
		}
		for _, fh := range form.File[name] {
			t, err := readPart(ctx, fh)
			if err != nil {
				return nil, err
			}
			reports = append(reports, pipeline.Report{Type: rt, Table: t, Period: period})
		}
	}
	return reports, nil
}

func readPart(ctx context.Context, fh *multipart.FileHeader) (*tabular.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "server: open part %s", fh.Filename)
	}
	defer f.Close() //nolint:errcheck
	return tabular.Read(ctx, f, fh.Filename, tabular.Options{})
}

func formFile(form *multipart.Form, field string) ([]byte, bool, error) {
	fhs := form.File[field]
	if len(fhs) == 0 {
		if v := form.Value[field]; len(v) > 0 && v[0] != "" {
			return []byte(v[0]), true, nil
		}
		return nil, false, nil
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil, false, eris.Wrapf(err, "server: open %s part", field)
	}
	defer f.Close() //nolint:errcheck
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, eris.Wrapf(err, "server: read %s part", field)
	}
	return data, true, nil
}
