package operations

import (
	"sync"
	"time"

	"wdipanel/internal/dataprocessing"
	"wdipanel/pkg/contracts/domain"
)

// OperationStatusValue represents the overall run status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// RunData is what steps hand to each other. Steps run one at a time, so
// they read and write it without locking.
type RunData struct {
	Request     RunRequest
	Diagnostics *dataprocessing.Collector
	Locations   []domain.Location
	Frames      []*dataprocessing.Frame
	RawPanel    *dataprocessing.Table
	Processed   *dataprocessing.Table
	Artifacts   map[string]string
}

// OperationState represents the complete state of one run
type OperationState struct {
	mu sync.RWMutex

	ID        string
	Status    OperationStatusValue
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	steps map[string]*StepState
	order []string

	Data *RunData
}

// NewOperationState creates a new run state
func NewOperationState(id string, req RunRequest) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		steps:     make(map[string]*StepState),
		Data: &RunData{
			Request:     req,
			Diagnostics: dataprocessing.NewCollector(req.Registry),
			Artifacts:   make(map[string]string),
		},
	}
}

// Start marks the run as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the run as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the run as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the run status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// AddStep registers the state of a step, keeping insertion order
func (p *OperationState) AddStep(state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.steps[state.ID]; !ok {
		p.order = append(p.order, state.ID)
	}
	p.steps[state.ID] = state
}

// GetStep returns the state of a specific step
func (p *OperationState) GetStep(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.steps[stepID]
}

// StepSnapshots returns a copy of every step state in order
func (p *OperationState) StepSnapshots() []StepSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StepSnapshot, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.steps[id].Snapshot())
	}
	return out
}

// Duration returns the duration of the run
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.steps {
		if step.GetStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}

// OperationSnapshot is a serializable view of a run in progress
type OperationSnapshot struct {
	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartedAt time.Time            `json:"started_at"`
	Steps     []StepSnapshot       `json:"steps"`
}

// Snapshot copies the run state for reporting
func (p *OperationState) Snapshot() OperationSnapshot {
	steps := p.StepSnapshots()
	p.mu.RLock()
	defer p.mu.RUnlock()
	return OperationSnapshot{
		ID:        p.ID,
		Status:    p.Status,
		StartedAt: p.StartTime,
		Steps:     steps,
	}
}
