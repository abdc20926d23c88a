package http

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"wdipanel/internal/dataprocessing"
	apperrors "wdipanel/internal/errors"
	"wdipanel/internal/operations"
	"wdipanel/internal/services"
	"wdipanel/pkg/contracts/domain"
)

// PanelHandler serves the latest panel and its metadata
type PanelHandler struct {
	service      PipelineServiceInterface
	operations   OperationsLister
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewPanelHandler creates a new panel handler. ops may be nil.
func NewPanelHandler(service PipelineServiceInterface, ops OperationsLister, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *PanelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanelHandler{
		service:      service,
		operations:   ops,
		logger:       logger.With(slog.String("handler", "panel")),
		errorHandler: errorHandler,
	}
}

// PanelResponse is the JSON form of a panel: column names and row arrays,
// with numbers as numbers and missing values as null
type PanelResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Count   int             `json:"count"`
}

func newPanelResponse(t *dataprocessing.Table) *PanelResponse {
	rows := make([][]interface{}, t.Len())
	for i := range rows {
		src := t.Row(i)
		row := make([]interface{}, len(src))
		for j, v := range src {
			row[j] = cellJSON(v)
		}
		rows[i] = row
	}
	return &PanelResponse{Columns: t.Columns(), Rows: rows, Count: len(rows)}
}

func cellJSON(v dataprocessing.Value) interface{} {
	switch v.Kind() {
	case dataprocessing.KindNumber:
		f, _ := v.Float()
		return f
	case dataprocessing.KindText:
		return v.String()
	default:
		return nil
	}
}

// GetPanel handles GET /api/panel
func (h *PanelHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := intParam(query.Get("from"), "from")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	to, err := intParam(query.Get("to"), "to")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := services.PanelQuery{Location: query.Get("location"), From: from, To: to}
	if err := validateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	panel, err := h.service.Panel(q)
	if errors.Is(err, services.ErrNoPanel) {
		h.errorHandler.HandleError(w, r, apperrors.New(http.StatusNotFound, "NO_PANEL", err.Error()))
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if strings.EqualFold(query.Get("format"), "csv") {
		h.writeCSV(w, r, panel)
		return
	}
	render.JSON(w, r, newPanelResponse(panel))
}

func (h *PanelHandler) writeCSV(w http.ResponseWriter, r *http.Request, panel *dataprocessing.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="panel.csv"`)
	cw := csv.NewWriter(w)
	if err := cw.Write(panel.Columns()); err != nil {
		h.logger.WarnContext(r.Context(), "panel csv write failed", slog.String("error", err.Error()))
		return
	}
	if err := cw.WriteAll(panel.Records()); err != nil {
		h.logger.WarnContext(r.Context(), "panel csv write failed", slog.String("error", err.Error()))
	}
}

// GetDiagnostics handles GET /api/diagnostics
func (h *PanelHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags, err := h.service.Diagnostics(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, diags)
}

// GetLocations handles GET /api/locations. aggregates=false keeps countries only.
func (h *PanelHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	locations := h.service.Locations(r.Context())
	if strings.EqualFold(r.URL.Query().Get("aggregates"), "false") {
		countries := make([]domain.Location, 0, len(locations))
		for _, l := range locations {
			if !l.IsAggregate() {
				countries = append(countries, l)
			}
		}
		locations = countries
	}
	render.JSON(w, r, map[string]interface{}{
		"data":  locations,
		"count": len(locations),
	})
}

// ListOperations handles GET /api/operations
func (h *PanelHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops := []operations.OperationSnapshot{}
	if h.operations != nil {
		ops = append(ops, h.operations.ListOperations()...)
	}
	render.JSON(w, r, map[string]interface{}{
		"data":  ops,
		"count": len(ops),
	})
}
