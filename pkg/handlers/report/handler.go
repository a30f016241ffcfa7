package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/de-tools/report-atlas/pkg/adapters"
	"github.com/de-tools/report-atlas/pkg/models/api"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/report"
	"github.com/de-tools/report-atlas/pkg/services/run"
	runstore "github.com/de-tools/report-atlas/pkg/store/duckdb/run"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Catalog interface {
	Get(name string) (domain.ReportDefinition, error)
	List() []domain.ReportDefinition
}

type Handler struct {
	catalog Catalog
	engine  report.Runner
	runs    run.Controller
}

func NewHandler(catalog Catalog, engine report.Runner, runs run.Controller) *Handler {
	return &Handler{
		catalog: catalog,
		engine:  engine,
		runs:    runs,
	}
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	defs := h.catalog.List()
	response := make([]api.Report, 0, len(defs))
	for _, def := range defs {
		response = append(response, adapters.MapReportDefinitionDomainToApi(def))
	}
	writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "report")

	def, err := h.catalog.Get(name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	params, err := decodeParams(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	timeout, err := parseTimeout(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tree, err := h.engine.Run(ctx, def, params)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapBandTreeDomainToApi(tree))
}

func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "report")

	params, err := decodeParams(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	timeout, err := parseTimeout(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	id, err := h.runs.Start(ctx, name, params, timeout)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/runs/"+id)
	writeJSON(ctx, w, http.StatusAccepted, api.RunAccepted{ID: id})
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rn, err := h.runs.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapRunStoreToApi(rn))
}

func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rn, err := h.runs.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if rn.Done() {
		writeJSON(ctx, w, http.StatusConflict, api.ErrorResponse{Error: fmt.Sprintf("run %s already %s", id, rn.Status)})
		return
	}
	if err := h.runs.Cancel(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}

	rn, err = h.runs.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapRunStoreToApi(rn))
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func decodeParams(r *http.Request) (domain.Params, error) {
	params := domain.Params{}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&params)
	if errors.Is(err, io.EOF) {
		return params, nil
	}
	if err != nil {
		return nil, &badRequestError{fmt.Errorf("invalid params body: %w", err)}
	}
	return params, nil
}

func parseTimeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, &badRequestError{fmt.Errorf("invalid timeout %q", raw)}
	}
	return d, nil
}

func statusFor(err error) int {
	var (
		verr *domain.ValidationError
		berr *badRequestError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &berr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrReportingInterrupted):
		return http.StatusRequestTimeout
	case errors.Is(err, report.ErrReportNotFound), errors.Is(err, runstore.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, run.ErrRunNotRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	event := zerolog.Ctx(ctx).Warn()
	if status == http.StatusInternalServerError {
		event = zerolog.Ctx(ctx).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	writeJSON(ctx, w, status, api.ErrorResponse{Error: err.Error()})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
