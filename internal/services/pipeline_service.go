package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wdipanel/internal/dataprocessing"
	apperrors "wdipanel/internal/errors"
	"wdipanel/internal/infrastructure"
	"wdipanel/internal/operations"
	"wdipanel/pkg/contracts/domain"
)

// Runner executes one pipeline run
type Runner interface {
	Execute(ctx context.Context, req operations.RunRequest) (*operations.RunResult, error)
}

// RunHistory reads recorded runs
type RunHistory interface {
	List(ctx context.Context, limit int) ([]domain.RunSummary, error)
	Latest(ctx context.Context) (domain.RunSummary, error)
	Get(ctx context.Context, id string) (domain.RunSummary, error)
}

// RunOverrides narrows the configured run request for one trigger. Zero
// fields keep the configured value.
type RunOverrides struct {
	Locations string `json:"locations,omitempty"`
	StartDate string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Workbook  *bool  `json:"workbook,omitempty"`
}

// PanelQuery filters the latest panel
type PanelQuery struct {
	Location string `validate:"omitempty,alphanum,min=2,max=3"`
	From     int    `validate:"omitempty,min=1900,max=2100"`
	To       int    `validate:"omitempty,min=1900,max=2100,gtefield=From"`
}

// PipelineService triggers runs and serves their results
type PipelineService struct {
	runner     Runner
	history    RunHistory
	locations  operations.LocationLister
	defaults   operations.RunRequest
	runTimeout time.Duration
	logger     *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	latest *operations.RunResult
}

// PipelineOption configures a PipelineService
type PipelineOption func(*PipelineService)

// WithHistory serves run history from h
func WithHistory(h RunHistory) PipelineOption {
	return func(s *PipelineService) { s.history = h }
}

// WithLocationLister answers location queries from l before any run has
// collected location metadata
func WithLocationLister(l operations.LocationLister) PipelineOption {
	return func(s *PipelineService) { s.locations = l }
}

// WithRunTimeout bounds every triggered run
func WithRunTimeout(d time.Duration) PipelineOption {
	return func(s *PipelineService) { s.runTimeout = d }
}

// NewPipelineService creates a service that runs defaults unless a trigger
// overrides them
func NewPipelineService(runner Runner, defaults operations.RunRequest, logger *slog.Logger, opts ...PipelineOption) *PipelineService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PipelineService{
		runner:   runner,
		defaults: defaults,
		logger:   infrastructure.WithComponent(logger, "pipeline_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger starts a run, or joins the one already in flight. shared reports
// whether the result came from a run another caller started; in that case the
// overrides of that caller were used. The run is detached from ctx so a
// disconnecting client does not cancel it for everyone else.
func (s *PipelineService) Trigger(ctx context.Context, overrides RunOverrides) (result *operations.RunResult, shared bool, err error) {
	req, err := s.request(overrides)
	if err != nil {
		return nil, false, err
	}

	v, err, shared := s.group.Do("run", func() (interface{}, error) {
		runCtx := context.WithoutCancel(ctx)
		if s.runTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, s.runTimeout)
			defer cancel()
		}

		s.logger.InfoContext(ctx, "run triggered",
			slog.String("locations", req.Locations.String()),
			slog.Int("start", req.Period.Start),
			slog.Int("end", req.Period.End))

		res, runErr := s.runner.Execute(runCtx, req)
		if res != nil {
			s.mu.Lock()
			s.latest = res
			s.mu.Unlock()
		}
		return res, runErr
	})

	result, _ = v.(*operations.RunResult)
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight run")
	}
	return result, shared, err
}

func (s *PipelineService) request(o RunOverrides) (operations.RunRequest, error) {
	req := s.defaults
	if o.Locations != "" {
		sel, err := domain.ParseLocationSelector(o.Locations)
		if err != nil {
			return req, apperrors.NewAppValidationError(err.Error())
		}
		req.Locations = sel
	}
	if o.StartDate != "" || o.EndDate != "" {
		start, end := o.StartDate, o.EndDate
		if start == "" {
			start = strconv.Itoa(req.Period.Start) + "-01-01"
		}
		if end == "" {
			end = strconv.Itoa(req.Period.End) + "-12-31"
		}
		period, err := domain.PeriodRangeFromDates(start, end)
		if err != nil {
			return req, apperrors.NewAppValidationError(err.Error())
		}
		req.Period = period
	}
	if o.Workbook != nil {
		req.Workbook = *o.Workbook
	}
	return req, nil
}

// Latest returns the most recent run of this process
func (s *PipelineService) Latest() (*operations.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// LatestSummary returns the most recent run, falling back to recorded
// history when this process has not run yet
func (s *PipelineService) LatestSummary(ctx context.Context) (domain.RunSummary, error) {
	if res, ok := s.Latest(); ok {
		return res.RunSummary, nil
	}
	if s.history == nil {
		return domain.RunSummary{}, apperrors.ErrRunNotFound
	}
	return s.history.Latest(ctx)
}

// Runs lists recorded runs, newest first
func (s *PipelineService) Runs(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.List(ctx, limit)
}

// Run returns one recorded run
func (s *PipelineService) Run(ctx context.Context, id string) (domain.RunSummary, error) {
	if res, ok := s.Latest(); ok && res.ID == id {
		return res.RunSummary, nil
	}
	if s.history == nil {
		return domain.RunSummary{}, ErrNoHistory
	}
	return s.history.Get(ctx, id)
}

// Diagnostics returns the diagnostics of the latest run
func (s *PipelineService) Diagnostics(ctx context.Context) (domain.DiagnosticsSummary, error) {
	summary, err := s.LatestSummary(ctx)
	if err != nil {
		return domain.DiagnosticsSummary{}, err
	}
	return summary.Diagnostics, nil
}

// Locations returns the location metadata of the latest run, or asks the
// location source directly when no run has collected any
func (s *PipelineService) Locations(ctx context.Context) []domain.Location {
	if res, ok := s.Latest(); ok && len(res.Locations) > 0 {
		return res.Locations
	}
	if s.locations == nil {
		return []domain.Location{}
	}
	return s.locations.ListLocations(ctx)
}

// Panel returns the rows of the latest panel matching q. Rows whose period is
// not a year never match a year bound.
func (s *PipelineService) Panel(q PanelQuery) (*dataprocessing.Table, error) {
	res, ok := s.Latest()
	if !ok || res.Panel == nil {
		return nil, ErrNoPanel
	}

	panel := res.Panel.Clone()
	location := strings.ToUpper(q.Location)
	panel.DropRows(func(i int) bool {
		if location != "" && panel.Get(i, dataprocessing.LocationKey).String() != location {
			return true
		}
		if q.From == 0 && q.To == 0 {
			return false
		}
		year, err := strconv.Atoi(panel.Get(i, dataprocessing.PeriodKey).String())
		if err != nil {
			return true
		}
		return (q.From != 0 && year < q.From) || (q.To != 0 && year > q.To)
	})
	return panel, nil
}
