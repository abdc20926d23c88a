package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"wdipanel/internal/dataprocessing"
	apperrors "wdipanel/internal/errors"
	"wdipanel/internal/operations"
	"wdipanel/internal/services"
	"wdipanel/pkg/contracts/domain"
)

// RunsHandler triggers runs and serves run history
type RunsHandler struct {
	service      PipelineServiceInterface
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service PipelineServiceInterface, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *RunsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "runs")),
		errorHandler: errorHandler,
	}
}

// Routes returns a chi router for run endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListRuns)
	r.Post("/", h.TriggerRun)
	r.Get("/latest", h.LatestRun)
	r.Get("/{id}", h.GetRun)
	return r
}

// ListQuery bounds a run listing
type ListQuery struct {
	Limit int `validate:"omitempty,min=1,max=1000"`
}

// TriggerRequest is the optional body of POST /api/runs
type TriggerRequest struct {
	services.RunOverrides
}

// Bind implements render.Binder
func (t *TriggerRequest) Bind(r *http.Request) error {
	return validateStruct(t.RunOverrides)
}

// RunResponse is the body returned for a triggered run
type RunResponse struct {
	domain.RunSummary
	Steps  []operations.StepSnapshot `json:"steps"`
	Shared bool                      `json:"shared"`
}

// Render implements render.Renderer
func (rr *RunResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := ListQuery{Limit: limit}
	if err := validateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}

	runs, err := h.service.Runs(r.Context(), q.Limit)
	if errors.Is(err, services.ErrNoHistory) {
		h.errorHandler.HandleError(w, r, apperrors.New(http.StatusNotImplemented, "NO_HISTORY", err.Error()))
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"data":  runs,
		"count": len(runs),
	})
}

// LatestRun handles GET /api/runs/latest
func (h *RunsHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.LatestSummary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Run(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, services.ErrNoHistory) {
		err = apperrors.ErrRunNotFound
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// TriggerRun handles POST /api/runs. The body is optional; an empty body
// runs the configured request. A run that produced no panel answers 422 with
// the run summary as details.
func (h *RunsHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := &TriggerRequest{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, req); err != nil && !errors.Is(err, io.EOF) {
			var apiErr *apperrors.APIError
			if !errors.As(err, &apiErr) {
				err = apperrors.InvalidRequestWithError(err)
			}
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	h.logger.InfoContext(ctx, "run requested",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("locations", req.Locations),
		slog.String("start_date", req.StartDate),
		slog.String("end_date", req.EndDate))

	result, shared, err := h.service.Trigger(ctx, req.RunOverrides)
	if err != nil {
		switch {
		case result != nil && errors.Is(err, dataprocessing.ErrNoData):
			e := apperrors.NewWithDetails(apperrors.ErrNoData.StatusCode, apperrors.ErrNoData.ErrorCode,
				apperrors.ErrNoData.Message, result.RunSummary)
			h.errorHandler.HandleError(w, r, e)
		case result != nil && operations.GetErrorType(err) != operations.ErrorTypeTimeout &&
			operations.GetErrorType(err) != operations.ErrorTypeCancellation:
			e := apperrors.NewWithDetails(apperrors.ErrRunFailed.StatusCode, apperrors.ErrRunFailed.ErrorCode,
				err.Error(), result.RunSummary)
			h.errorHandler.HandleError(w, r, e)
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.Render(w, r, &RunResponse{
		RunSummary: result.RunSummary,
		Steps:      result.Steps,
		Shared:     shared,
	})
}
