package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

// DefaultArtifactsDelay is the delay after the terminal stage before its
// artifacts are attached to the view.
const DefaultArtifactsDelay = 500 * time.Millisecond

// StepStatus is the display status of a canonical stage.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
)

// Step is a canonical stage with its display status.
type Step struct {
	Stage  model.Stage
	Label  string
	Status StepStatus
}

// View is the derived progress of the current task.
type View struct {
	// Visible is false until the first stage event arrives, or after hiding it.
	Visible bool
	// Stage is the last received stage, it can be outside the canonical order.
	Stage model.Stage
	// Steps has one entry per canonical stage, in order.
	Steps []Step
	// Artifacts are attached with a delay once the terminal stage is received.
	Artifacts []model.Artifact
}

// Steps returns the canonical stages marked against the current one: the ones
// before it are completed, the current one is active and the rest pending. An
// unknown current stage marks all of them pending.
func Steps(current model.Stage) []Step {
	idx := model.StageIndex(current)
	stages := model.CanonicalStages()
	steps := make([]Step, 0, len(stages))
	for i, s := range stages {
		status := StepStatusPending
		switch {
		case idx < 0:
		case i < idx:
			status = StepStatusCompleted
		case i == idx:
			status = StepStatusActive
		}
		steps = append(steps, Step{Stage: s, Label: s.Label(), Status: status})
	}

	return steps
}

// Augmentation is a deferred artifacts attachment ready to be applied with
// Tracker.Augment.
type Augmentation struct {
	seq       uint64
	Artifacts []model.Artifact
}

// TrackerConfig is the configuration of the progress tracker.
type TrackerConfig struct {
	ArtifactsDelay time.Duration
	Logger         log.Logger
}

func (c *TrackerConfig) defaults() error {
	if c.ArtifactsDelay == 0 {
		c.ArtifactsDelay = DefaultArtifactsDelay
	}
	if c.ArtifactsDelay < 0 {
		return fmt.Errorf("artifacts delay can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "progress.Tracker"})
	return nil
}

// Tracker derives the progress view from stage events. There is a single view
// shared by all the tasks, events are not keyed by task.
type Tracker struct {
	artifactsDelay time.Duration
	logger         log.Logger
	augmentations  chan Augmentation
	done           chan struct{}
	closeOnce      sync.Once

	mu     sync.Mutex
	view   View
	seq    uint64
	timer  *time.Timer
	closed bool
}

// NewTracker returns a new progress tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		artifactsDelay: cfg.ArtifactsDelay,
		logger:         cfg.Logger,
		augmentations:  make(chan Augmentation, 1),
		done:           make(chan struct{}),
		view:           View{Steps: Steps("")},
	}, nil
}

// Augmentations returns the stream of fired deferred augmentations.
func (t *Tracker) Augmentations() <-chan Augmentation { return t.augmentations }

// Apply updates the view with a stage event and returns it. Any pending
// augmentation is cancelled. A terminal event with artifacts schedules a new one.
func (t *Tracker) Apply(ev model.StageEvent) View {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelPending()
	t.view = View{
		Visible: true,
		Stage:   ev.Stage,
		Steps:   Steps(ev.Stage),
	}

	if model.StageIndex(ev.Stage) < 0 {
		t.logger.Debugf("Unknown stage %q, all steps pending", ev.Stage)
	}

	if ev.Stage.IsTerminal() && len(ev.Data.Artifacts) > 0 && !t.closed {
		aug := Augmentation{seq: t.seq, Artifacts: copyArtifacts(ev.Data.Artifacts)}
		t.timer = time.AfterFunc(t.artifactsDelay, func() {
			select {
			case t.augmentations <- aug:
			case <-t.done:
			}
		})
	}

	return t.viewCopy()
}

// Augment attaches the augmentation artifacts to the view. Stale augmentations,
// the ones superseded by a later event, are discarded and false is returned.
func (t *Tracker) Augment(a Augmentation) (View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || a.seq != t.seq {
		return t.viewCopy(), false
	}

	t.timer = nil
	t.view.Artifacts = copyArtifacts(a.Artifacts)
	return t.viewCopy(), true
}

// View returns the current view.
func (t *Tracker) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewCopy()
}

// Hide hides the view until the next stage event.
func (t *Tracker) Hide() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.Visible = false
	return t.viewCopy()
}

// Close cancels any pending augmentation. The tracker can't augment after closing.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.closed = true
		t.cancelPending()
		close(t.done)
	})
}

// cancelPending must be called with the lock held.
func (t *Tracker) cancelPending() {
	t.seq++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) viewCopy() View {
	v := t.view
	v.Steps = append([]Step{}, t.view.Steps...)
	v.Artifacts = copyArtifacts(t.view.Artifacts)
	return v
}

func copyArtifacts(as []model.Artifact) []model.Artifact {
	if len(as) == 0 {
		return nil
	}
	return append([]model.Artifact{}, as...)
}
