package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/operations"
	"wdipanel/internal/services"
	"wdipanel/internal/shared/testutil"
	"wdipanel/internal/store"
	"wdipanel/pkg/contracts/domain"
)

var gdpSpec = domain.IndicatorSpec{Code: "NY.GDP.PCAP.KD", Name: "GDP_per_capita"}

type runnerFunc func(ctx context.Context, req operations.RunRequest) (*operations.RunResult, error)

func (f runnerFunc) Execute(ctx context.Context, req operations.RunRequest) (*operations.RunResult, error) {
	return f(ctx, req)
}

func testPanel(t *testing.T) *dataprocessing.Table {
	t.Helper()
	panel := dataprocessing.NewTable(dataprocessing.LocationKey, dataprocessing.PeriodKey, gdpSpec.Name, gdpSpec.YoYColumn())
	require.NoError(t, panel.AppendRow(dataprocessing.Text("USA"), dataprocessing.Text("2010"), dataprocessing.Number(100), dataprocessing.Null()))
	require.NoError(t, panel.AppendRow(dataprocessing.Text("USA"), dataprocessing.Text("2011"), dataprocessing.Number(110), dataprocessing.Number(10)))
	require.NoError(t, panel.AppendRow(dataprocessing.Text("DEU"), dataprocessing.Text("2011"), dataprocessing.Number(80), dataprocessing.Null()))
	return panel
}

type testServer struct {
	*httptest.Server
	store *store.Store
}

// newTestServer wires the router to a PipelineService whose runner records
// each result in a real run store
func newTestServer(t *testing.T, runner runnerFunc) *testServer {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	runs, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	recording := runnerFunc(func(ctx context.Context, req operations.RunRequest) (*operations.RunResult, error) {
		res, err := runner(ctx, req)
		if res != nil {
			assert.NoError(t, runs.Record(ctx, res.RunSummary))
		}
		return res, err
	})

	svc := services.NewPipelineService(recording, operations.RunRequest{
		Registry:  domain.MustRegistry(gdpSpec),
		Locations: domain.AllLocations(),
		Period:    domain.PeriodRange{Start: 2010, End: 2012},
	}, logger, services.WithHistory(runs))

	router := NewRouter(RouterConfig{
		Pipeline: svc,
		Health:   services.NewHealthService("test", runs, nil, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# HELP pipeline_runs_total\n"))
		}),
		Logger: logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: runs}
}

func succeeding(t *testing.T) runnerFunc {
	return func(_ context.Context, req operations.RunRequest) (*operations.RunResult, error) {
		now := time.Now().UTC()
		return &operations.RunResult{
			RunSummary: domain.RunSummary{
				ID:         "run-" + req.Locations.PathSegment(),
				Status:     domain.RunStatusSucceeded,
				StartedAt:  now,
				FinishedAt: now.Add(time.Second),
				Locations:  req.Locations.String(),
				Period:     req.Period,
				Indicators: 1, Contributed: 1, PanelRows: 3, PanelColumns: 4,
				Diagnostics: domain.DiagnosticsSummary{
					Failures: []domain.Diagnostic{},
					Warnings: []domain.Diagnostic{{Code: "X", Message: "careful"}},
				},
			},
			Steps:     []operations.StepSnapshot{{ID: operations.StepIDMerge, Status: operations.StepStatusCompleted}},
			Panel:     testPanel(t),
			Locations: []domain.Location{{Code: "USA"}, {Code: "WLD", RegionID: "NA"}},
		}, nil
	}
}

func doJSON(t *testing.T, method, url, body string, out interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type apiError struct {
	StatusCode int             `json:"status_code"`
	ErrorCode  string          `json:"error_code"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details"`
	TraceID    string          `json:"trace_id"`
}

func TestRouter_TriggerThenQuery(t *testing.T) {
	srv := newTestServer(t, succeeding(t))

	var latestErr apiError
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/runs/latest", "", &latestErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", latestErr.ErrorCode)

	var panelErr apiError
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/panel", "", &panelErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NO_PANEL", panelErr.ErrorCode)

	var run RunResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/runs", "", &run)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "run-all", run.ID)
	assert.Equal(t, domain.RunStatusSucceeded, run.Status)
	assert.False(t, run.Shared)
	assert.Len(t, run.Steps, 1)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var latest domain.RunSummary
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/latest", "", &latest)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "run-all", latest.ID)

	var one domain.RunSummary
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/run-all", "", &one)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, one.PanelRows)

	var list struct {
		Data  []domain.RunSummary `json:"data"`
		Count int                 `json:"count"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs?limit=10", "", &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, list.Count)

	var panel PanelResponse
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/panel?location=usa&from=2011", "", &panel)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"country_code", "year_str", "GDP_per_capita", "GDP_per_capita_yoy"}, panel.Columns)
	require.Equal(t, 1, panel.Count)
	assert.Equal(t, []interface{}{"USA", "2011", 110.0, 10.0}, panel.Rows[0])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/panel", "", &panel)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, panel.Rows[0][3], "missing values are null")

	var diags domain.DiagnosticsSummary
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/diagnostics", "", &diags)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, diags.Warnings, 1)

	var locs struct {
		Data  []domain.Location `json:"data"`
		Count int               `json:"count"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/locations", "", &locs)
	assert.Equal(t, 2, locs.Count)
	doJSON(t, http.MethodGet, srv.URL+"/api/locations?aggregates=false", "", &locs)
	assert.Equal(t, 1, locs.Count)
}

func TestRouter_TriggerWithOverrides(t *testing.T) {
	var got operations.RunRequest
	base := succeeding(t)
	srv := newTestServer(t, func(ctx context.Context, req operations.RunRequest) (*operations.RunResult, error) {
		got = req
		return base(ctx, req)
	})

	var run RunResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/runs",
		`{"locations":"USA","start_date":"2011-01-01","end_date":"2012-12-31"}`, &run)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, domain.SingleLocation("USA"), got.Locations)
	assert.Equal(t, domain.PeriodRange{Start: 2011, End: 2012}, got.Period)
	assert.Equal(t, "run-USA", run.ID)
}

func TestRouter_TriggerValidation(t *testing.T) {
	srv := newTestServer(t, succeeding(t))

	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "bad date", body: `{"start_date":"2011/01/01"}`, code: "VALIDATION_FAILED"},
		{name: "malformed json", body: `{"start_date":`, code: "INVALID_REQUEST"},
		{name: "reversed range", body: `{"start_date":"2015-01-01","end_date":"2011-01-01"}`, code: "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e apiError
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/runs", tt.body, &e)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, e.ErrorCode)
			assert.NotEmpty(t, e.TraceID)
		})
	}
}

func TestRouter_TriggerNoData(t *testing.T) {
	srv := newTestServer(t, func(_ context.Context, req operations.RunRequest) (*operations.RunResult, error) {
		now := time.Now().UTC()
		return &operations.RunResult{RunSummary: domain.RunSummary{
			ID: "empty", Status: domain.RunStatusFailed, StartedAt: now, FinishedAt: now,
			Error: "no indicator produced data",
		}}, operations.NewFatalError("no indicator produced data", dataprocessing.ErrNoData)
	})

	var e apiError
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/runs", "", &e)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "NO_DATA", e.ErrorCode)

	var details domain.RunSummary
	require.NoError(t, json.Unmarshal(e.Details, &details))
	assert.Equal(t, "empty", details.ID)
	assert.Equal(t, domain.RunStatusFailed, details.Status)

	var latest domain.RunSummary
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/runs/latest", "", &latest)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RunStatusFailed, latest.Status)
}

func TestRouter_QueryValidation(t *testing.T) {
	srv := newTestServer(t, succeeding(t))
	doJSON(t, http.MethodPost, srv.URL+"/api/runs", "", nil)

	tests := []struct {
		name  string
		query string
	}{
		{name: "non-numeric year", query: "/api/panel?from=abc"},
		{name: "year out of range", query: "/api/panel?from=1500"},
		{name: "to before from", query: "/api/panel?from=2012&to=2010"},
		{name: "bad location", query: "/api/panel?location=U-S"},
		{name: "limit too large", query: "/api/runs?limit=5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e apiError
			resp := doJSON(t, http.MethodGet, srv.URL+tt.query, "", &e)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", e.ErrorCode)
		})
	}
}

func TestRouter_PanelCSV(t *testing.T) {
	srv := newTestServer(t, succeeding(t))
	doJSON(t, http.MethodPost, srv.URL+"/api/runs", "", nil)

	resp, err := http.Get(srv.URL + "/api/panel?format=csv&location=DEU")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "country_code,year_str,GDP_per_capita,GDP_per_capita_yoy\nDEU,2011,80,\n", buf.String())
}

func TestRouter_HealthMetricsAndFallbacks(t *testing.T) {
	srv := newTestServer(t, succeeding(t))

	var health services.HealthStatus
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Services["store"].Status)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var e apiError
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/nope", "", &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/runs", "", &e)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var ops struct {
		Count int `json:"count"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/operations", "", &ops)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, ops.Count)
}
