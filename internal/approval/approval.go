package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/jarvis/internal/backend"
	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

const (
	// DefaultExecutedText is used when an approved task completes without summary.
	DefaultExecutedText = "Task executed"
	// CancelledText is shown when a task is rejected.
	CancelledText = "Task cancelled"
	// FailedText is shown when the approval request fails.
	FailedText = "Approval operation failed, please retry later"
)

// State is the state of the approval handshake.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
)

// OutcomeKind is the result kind of an approval decision.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the result of posting an approval decision.
type Outcome struct {
	Kind      OutcomeKind
	TaskID    string
	Text      string
	Artifacts []model.Artifact
	// Err is the request failure cause if any, the outcome is cancelled then.
	Err error
}

// CoordinatorConfig is the configuration of the approval coordinator.
type CoordinatorConfig struct {
	Backend backend.Client
	Logger  log.Logger
}

func (c *CoordinatorConfig) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "approval.Coordinator"})
	return nil
}

// Coordinator holds at most one pending approval request and posts the human
// decision for it. The state machine is Idle -> Pending -> Idle.
type Coordinator struct {
	backend backend.Client
	logger  log.Logger

	mu      sync.Mutex
	pending *model.ApprovalRequest
}

// NewCoordinator returns a new approval coordinator in idle state.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Coordinator{
		backend: cfg.Backend,
		logger:  cfg.Logger,
	}, nil
}

// Begin enters the pending state for the request. A pending request is replaced.
func (c *Coordinator) Begin(req model.ApprovalRequest) error {
	if req.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil && c.pending.TaskID != req.TaskID {
		c.logger.Warningf("Approval for task %s replaced by task %s", c.pending.TaskID, req.TaskID)
	}

	r := req
	r.Steps = append([]model.ApprovalStep{}, req.Steps...)
	c.pending = &r
	return nil
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return StateIdle
	}
	return StatePending
}

// Pending returns the pending request, false if idle.
func (c *Coordinator) Pending() (model.ApprovalRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return model.ApprovalRequest{}, false
	}
	return *c.pending, true
}

// Take moves from pending to idle and returns the decision for the pending
// task. It returns false when idle.
func (c *Coordinator) Take(approved bool) (model.ApprovalDecision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return model.ApprovalDecision{}, false
	}

	d := model.ApprovalDecision{TaskID: c.pending.TaskID, Approved: approved}
	c.pending = nil
	return d, true
}

// Post sends the decision to the backend and maps the reply. It doesn't touch
// the coordinator state.
func (c *Coordinator) Post(ctx context.Context, d model.ApprovalDecision) Outcome {
	reply, err := c.backend.ApproveTask(ctx, d)
	if err != nil {
		c.logger.Errorf("Approval request for task %s failed: %s", d.TaskID, err)
		return Outcome{Kind: OutcomeCancelled, TaskID: d.TaskID, Text: FailedText, Err: err}
	}

	if !d.Approved || reply.Status != model.TaskStatusCompleted {
		return Outcome{Kind: OutcomeCancelled, TaskID: d.TaskID, Text: CancelledText}
	}

	text := reply.Summary
	if text == "" {
		text = DefaultExecutedText
	}
	return Outcome{Kind: OutcomeCompleted, TaskID: d.TaskID, Text: text, Artifacts: reply.Artifacts}
}

// Resolve posts the decision for the pending request and goes back to idle
// whatever the result. It's a no-op returning false when idle.
func (c *Coordinator) Resolve(ctx context.Context, approved bool) (Outcome, bool) {
	d, ok := c.Take(approved)
	if !ok {
		c.logger.Debugf("No pending approval, ignoring decision")
		return Outcome{}, false
	}

	return c.Post(ctx, d), true
}
