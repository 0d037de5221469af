package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/jarvis/internal/approval"
	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/progress"
	"github.com/slok/jarvis/internal/push"
	"github.com/slok/jarvis/internal/storage"
	"github.com/slok/jarvis/internal/submission"
)

var (
	// ErrSubmissionInFlight is returned when submitting while a previous submission has not finished.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrNotRunning is returned when the session loop is not running.
	ErrNotRunning = errors.New("session is not running")
)

const resultsBuffer = 64

// Presenter renders the session state. All the calls are made from the
// session loop, one at a time.
type Presenter interface {
	ConnectivityChanged(connected bool)
	ProgressChanged(v progress.View)
	ApprovalRequested(req model.ApprovalRequest)
	ApprovalDismissed()
	MessageAdded(msg model.Message)
}

// NoopPresenter ignores everything.
const NoopPresenter = noopPresenter(0)

type noopPresenter int

func (noopPresenter) ConnectivityChanged(bool)                {}
func (noopPresenter) ProgressChanged(progress.View)           {}
func (noopPresenter) ApprovalRequested(model.ApprovalRequest) {}
func (noopPresenter) ApprovalDismissed()                      {}
func (noopPresenter) MessageAdded(model.Message)              {}

// EventSource is the push channel inbound events source.
type EventSource interface {
	Events() <-chan push.Event
}

// Submitter submits tasks.
type Submitter interface {
	Submit(ctx context.Context, description string) submission.Outcome
}

// Coordinator is the approval handshake state holder.
type Coordinator interface {
	Begin(req model.ApprovalRequest) error
	Take(approved bool) (model.ApprovalDecision, bool)
	Post(ctx context.Context, d model.ApprovalDecision) approval.Outcome
}

// Result is a task interaction result, published on every submission and
// approval outcome.
type Result struct {
	Outcome     model.HistoryOutcome
	TaskID      string
	Description string
	Text        string
	Artifacts   []model.Artifact
	// Approval is only set when the outcome is waiting approval.
	Approval *model.ApprovalRequest
	Err      error
}

// Final returns true when no further interaction is expected for the task.
func (r Result) Final() bool { return r.Outcome != model.HistoryOutcomeWaitingApproval }

// SessionConfig is the configuration of the session.
type SessionConfig struct {
	Events      EventSource
	Submitter   Submitter
	Coordinator Coordinator
	// Tracker is the progress tracker, by default one with the default delay.
	Tracker   *progress.Tracker
	Presenter Presenter
	// History is optional, when set every result is journaled on it.
	History storage.Repository
	// IDGen generates history entry IDs, ULIDs by default.
	IDGen  func() string
	Clock  func() time.Time
	Logger log.Logger
}

func (c *SessionConfig) defaults() error {
	if c.Events == nil {
		return fmt.Errorf("events source is required")
	}
	if c.Submitter == nil {
		return fmt.Errorf("submitter is required")
	}
	if c.Coordinator == nil {
		return fmt.Errorf("approval coordinator is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "session.Session"})
	if c.Tracker == nil {
		t, err := progress.NewTracker(progress.TrackerConfig{Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create progress tracker: %w", err)
		}
		c.Tracker = t
	}
	if c.Presenter == nil {
		c.Presenter = NoopPresenter
	}
	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return nil
}

type commandKind int

const (
	commandSubmit commandKind = iota
	commandResolve
	commandHideProgress
)

type reply struct {
	ok  bool
	err error
}

type command struct {
	kind     commandKind
	text     string
	approved bool
	replyC   chan reply
}

type completion struct {
	description string
	submission  *submission.Outcome
	approval    *approval.Outcome
}

// Session wires the connection, the progress tracker, the submission client and
// the approval coordinator on a single loop. The loop owns all the state and
// the presenter calls, request round trips run outside of it and post their
// outcome back.
type Session struct {
	events      EventSource
	submitter   Submitter
	coordinator Coordinator
	tracker     *progress.Tracker
	presenter   Presenter
	history     storage.Repository
	idGen       func() string
	clock       func() time.Time
	logger      log.Logger

	commands    chan command
	completions chan completion
	results     chan Result
	stopped     chan struct{}

	// Loop owned state.
	inFlight bool
}

// New returns a new session.
func New(cfg SessionConfig) (*Session, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Session{
		events:      cfg.Events,
		submitter:   cfg.Submitter,
		coordinator: cfg.Coordinator,
		tracker:     cfg.Tracker,
		presenter:   cfg.Presenter,
		history:     cfg.History,
		idGen:       cfg.IDGen,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		commands:    make(chan command),
		completions: make(chan completion),
		results:     make(chan Result, resultsBuffer),
		stopped:     make(chan struct{}),
	}, nil
}

// Results returns the stream of task interaction results. Results are dropped
// if nobody reads them and the buffer is full.
func (s *Session) Results() <-chan Result { return s.results }

// Run runs the session loop until the context ends.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	defer s.tracker.Close()

	events := s.events.Events()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debugf("Session stopped")
			return nil

		case ev, ok := <-events:
			if !ok {
				s.logger.Debugf("Push events stream closed")
				events = nil
				continue
			}
			s.handlePushEvent(ev)

		case cmd := <-s.commands:
			cmd.replyC <- s.handleCommand(ctx, cmd)

		case c := <-s.completions:
			s.handleCompletion(ctx, c)

		case a := <-s.tracker.Augmentations():
			if v, ok := s.tracker.Augment(a); ok {
				s.presenter.ProgressChanged(v)
			}
		}
	}
}

// Submit submits a new task. It returns once the submission started, the
// outcome is presented and published as a result when the reply arrives.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("task description is required: %w", model.ErrNotValid)
	}

	r, err := s.do(ctx, command{kind: commandSubmit, text: text})
	if err != nil {
		return err
	}
	return r.err
}

// Resolve sends the human decision for the pending approval. It returns false
// if there was no pending approval.
func (s *Session) Resolve(ctx context.Context, approved bool) (bool, error) {
	r, err := s.do(ctx, command{kind: commandResolve, approved: approved})
	if err != nil {
		return false, err
	}
	return r.ok, r.err
}

// HideProgress hides the progress view until the next stage event.
func (s *Session) HideProgress(ctx context.Context) error {
	_, err := s.do(ctx, command{kind: commandHideProgress})
	return err
}

func (s *Session) do(ctx context.Context, cmd command) (reply, error) {
	cmd.replyC = make(chan reply, 1)

	select {
	case s.commands <- cmd:
	case <-s.stopped:
		return reply{}, ErrNotRunning
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}

	select {
	case r := <-cmd.replyC:
		return r, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (s *Session) handlePushEvent(ev push.Event) {
	switch ev.Kind {
	case push.EventConnected, push.EventDisconnected:
		s.presenter.ConnectivityChanged(ev.Connected())

	case push.EventMessage:
		if ev.Message.Type != model.PushMessageTypeTaskUpdate {
			s.logger.Debugf("Ignoring %q push message", ev.Message.Type)
			return
		}
		v := s.tracker.Apply(ev.Message.Event)
		s.presenter.ProgressChanged(v)
	}
}

func (s *Session) handleCommand(ctx context.Context, cmd command) reply {
	switch cmd.kind {
	case commandSubmit:
		if s.inFlight {
			return reply{err: ErrSubmissionInFlight}
		}
		s.inFlight = true
		s.addMessage(model.MessageRoleUser, cmd.text)

		go func() {
			out := s.submitter.Submit(ctx, cmd.text)
			s.complete(ctx, completion{description: cmd.text, submission: &out})
		}()
		return reply{ok: true}

	case commandResolve:
		d, ok := s.coordinator.Take(cmd.approved)
		if !ok {
			s.logger.Debugf("No pending approval to resolve")
			return reply{ok: false}
		}
		s.presenter.ApprovalDismissed()

		go func() {
			out := s.coordinator.Post(ctx, d)
			s.complete(ctx, completion{approval: &out})
		}()
		return reply{ok: true}

	case commandHideProgress:
		s.presenter.ProgressChanged(s.tracker.Hide())
		return reply{ok: true}
	}

	return reply{err: fmt.Errorf("unknown command %d", cmd.kind)}
}

func (s *Session) complete(ctx context.Context, c completion) {
	select {
	case s.completions <- c:
	case <-ctx.Done():
	}
}

func (s *Session) handleCompletion(ctx context.Context, c completion) {
	switch {
	case c.submission != nil:
		s.inFlight = false
		s.handleSubmission(ctx, c.description, *c.submission)
	case c.approval != nil:
		s.handleApproval(ctx, *c.approval)
	}
}

func (s *Session) handleSubmission(ctx context.Context, description string, out submission.Outcome) {
	r := Result{
		Description: description,
		Text:        out.Text,
		Artifacts:   out.Artifacts,
		Err:         out.Err,
	}

	switch out.Kind {
	case submission.OutcomeNeedsApproval:
		req := out.Approval
		if err := s.coordinator.Begin(req); err != nil {
			s.logger.Errorf("Could not begin approval: %s", err)
			s.addMessage(model.MessageRoleAssistant, submission.FailureText)
			r.Outcome = model.HistoryOutcomeFailed
			r.Text = submission.FailureText
			r.Err = err
			break
		}
		s.presenter.ApprovalRequested(req)
		r.Outcome = model.HistoryOutcomeWaitingApproval
		r.TaskID = req.TaskID
		r.Approval = &req

	case submission.OutcomeAnswer:
		s.addMessage(model.MessageRoleAssistant, out.Text)
		r.Outcome = model.HistoryOutcomeAnswered

	case submission.OutcomeCompleted:
		s.addMessage(model.MessageRoleAssistant, out.Text)
		r.Outcome = model.HistoryOutcomeCompleted

	default:
		s.addMessage(model.MessageRoleAssistant, out.Text)
		r.Outcome = model.HistoryOutcomeFailed
	}

	s.publish(ctx, r)
}

func (s *Session) handleApproval(ctx context.Context, out approval.Outcome) {
	s.addMessage(model.MessageRoleAssistant, out.Text)

	r := Result{
		Outcome:   model.HistoryOutcomeCancelled,
		TaskID:    out.TaskID,
		Text:      out.Text,
		Artifacts: out.Artifacts,
		Err:       out.Err,
	}
	if out.Kind == approval.OutcomeCompleted {
		r.Outcome = model.HistoryOutcomeCompleted
	}

	s.publish(ctx, r)
}

func (s *Session) addMessage(role model.MessageRole, text string) {
	s.presenter.MessageAdded(model.Message{Role: role, Text: text, At: s.clock()})
}

func (s *Session) publish(ctx context.Context, r Result) {
	if s.history != nil {
		e := model.HistoryEntry{
			ID:          s.idGen(),
			TaskID:      r.TaskID,
			Description: r.Description,
			Outcome:     r.Outcome,
			Text:        r.Text,
			CreatedAt:   s.clock(),
		}
		if err := s.history.AddEntry(ctx, e); err != nil {
			s.logger.Warningf("Could not journal %s result: %s", r.Outcome, err)
		}
	}

	select {
	case s.results <- r:
	default:
		s.logger.Debugf("Results buffer full, dropping %s result", r.Outcome)
	}
}
