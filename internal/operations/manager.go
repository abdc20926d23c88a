package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wdipanel/internal/infrastructure"
	"wdipanel/pkg/contracts/domain"
)

// RunRecorder persists finished runs. Recording failures never fail a run.
type RunRecorder interface {
	Record(ctx context.Context, summary domain.RunSummary) error
}

// Manager runs the registered steps in order, one run at a time per call
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	recorder RunRecorder
	logger   *slog.Logger

	// Active operations
	mu         sync.RWMutex
	operations map[string]*OperationState
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithRecorder persists every finished run
func WithRecorder(r RunRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// WithTracer sets the tracer used for spans and metrics
func WithTracer(t *OperationTracer) ManagerOption {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithManagerLogger sets the manager logger
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager over registry
func NewManager(registry *Registry, config *Config, opts ...ManagerOption) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	tracer, _ := NewOperationTracer(nil)

	m := &Manager{
		registry:   registry,
		config:     config,
		tracer:     tracer,
		logger:     slog.Default(),
		operations: make(map[string]*OperationState),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "operations"))
	return m
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute performs one run. The result is always returned; the error is
// non-nil when the run failed, and wraps dataprocessing.ErrNoData when no
// indicator contributed.
func (m *Manager) Execute(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Registry.Len() == 0 {
		return nil, NewValidationError("", "indicator registry is empty")
	}

	runID := uuid.New().String()
	ctx = infrastructure.WithTraceID(ctx, runID)

	state := NewOperationState(runID, req)
	steps := m.registry.List()
	for _, step := range steps {
		state.AddStep(NewStepState(step.ID(), step.Name()))
	}

	m.storeOperation(state)
	defer m.removeOperation(runID)

	ctx, span := m.tracer.TraceRun(ctx, runID, req)
	m.logOperationStart(ctx, runID, req)

	state.Start()
	err := m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	result := buildResult(state, time.Now())
	m.tracer.RecordRunCompletion(ctx, span, result)
	m.logOperationComplete(ctx, result)

	if m.recorder != nil {
		// a cancelled request context must not lose the history entry
		recordCtx := context.WithoutCancel(ctx)
		if rerr := m.recorder.Record(recordCtx, result.RunSummary); rerr != nil {
			m.logger.WarnContext(ctx, "failed to record run",
				slog.String("operation_id", runID),
				slog.String("error", rerr.Error()))
		}
	}

	return result, err
}

// executeSequential executes steps one by one. The first terminal error skips
// every remaining step.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var terminal error

	for i, step := range steps {
		stepState := state.GetStep(step.ID())

		if terminal != nil {
			stepState.Skip(fmt.Sprintf("previous step failed: %v", terminal))
			continue
		}

		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			terminal = NewCancellationError(step.ID(), err)
			stepState.Skip("operation cancelled")
			continue
		}

		m.logStageStart(ctx, state.ID, step.ID(), i+1, len(steps))
		if err := m.executeStage(ctx, state, step, stepState); err != nil {
			m.logStageError(ctx, state.ID, step.ID(), err)
			terminal = err
		}
	}

	return terminal
}

// executeStage runs a single step under its timeout and span
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, stepState *StepState) (err error) {
	timeout := m.config.GetStepTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stageCtx, span := m.tracer.TraceStep(stageCtx, state.ID, step.ID())
	stepState.Start()

	defer func() {
		if r := recover(); r != nil {
			err = NewFatalError(fmt.Sprintf("step %s panicked", step.ID()), fmt.Errorf("%v", r))
			stepState.Fail(err)
		}
		status := stepState.GetStatus()
		duration := stepState.Duration()
		m.tracer.RecordStepCompletion(ctx, span, step.ID(), status, duration, err)
		m.logStageComplete(ctx, state.ID, step.ID(), status, duration, stepState.Snapshot().Message)
	}()

	execErr := step.Execute(stageCtx, state)
	switch {
	case execErr == nil:
		stepState.Complete("")
		return nil
	case IsSkip(execErr):
		stepState.Skip(execErr.Error())
		return nil
	case errors.Is(execErr, context.DeadlineExceeded) && ctx.Err() == nil:
		err = NewTimeoutError(step.ID(), timeout.String(), execErr)
	case errors.Is(execErr, context.Canceled) || ctx.Err() != nil:
		err = NewCancellationError(step.ID(), execErr)
	default:
		err = WrapError(execErr, step.ID(), "step execution failed")
	}
	stepState.Fail(err)
	return err
}

// GetOperation returns a snapshot of a run in progress
func (m *Manager) GetOperation(id string) (OperationSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return OperationSnapshot{}, ErrOperationNotFound
	}
	return state.Snapshot(), nil
}

// ListOperations returns snapshots of every run in progress
func (m *Manager) ListOperations() []OperationSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]OperationSnapshot, 0, len(m.operations))
	for _, state := range m.operations {
		operations = append(operations, state.Snapshot())
	}
	return operations
}

func (m *Manager) storeOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
