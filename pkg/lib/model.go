package lib

import (
	"errors"
	"time"

	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/progress"
	"github.com/slok/jarvis/internal/session"
)

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when an input is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrRequestFailed is returned when the backend could not be reached or
	// replied with an error.
	ErrRequestFailed = errors.New("request failed")
	// ErrSubmissionInFlight is returned when submitting while a previous
	// submission has not finished.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrNotRunning is returned when the client loop is not running.
	ErrNotRunning = errors.New("client is not running")
)

// Outcome is the result kind of a task interaction.
type Outcome string

const (
	// OutcomeAnswered indicates the task was a question with a direct answer.
	OutcomeAnswered Outcome = "answered"
	// OutcomeCompleted indicates the task was executed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeWaitingApproval indicates the task has risky steps and waits for
	// a decision. It is the only non final outcome.
	OutcomeWaitingApproval Outcome = "waiting_approval"
	// OutcomeCancelled indicates the task was rejected or could not be executed.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFailed indicates the backend could not process the task.
	OutcomeFailed Outcome = "failed"
)

// Artifact is a file produced by a task execution.
type Artifact struct {
	Path        string
	Type        string
	Description string
}

// ApprovalStep is a risky step the backend wants to execute.
type ApprovalStep struct {
	Description string
	// RiskLevel is the backend risk level (e.g. "high" or "R2").
	RiskLevel string
}

// ApprovalRequest is the set of steps that need a decision before a task is executed.
type ApprovalRequest struct {
	TaskID string
	Steps  []ApprovalStep
}

// Result is the outcome of a task interaction.
type Result struct {
	Outcome Outcome
	// TaskID is empty for answered questions and failed submissions.
	TaskID      string
	Description string
	// Text is the user facing reply.
	Text      string
	Artifacts []Artifact
	// Approval is only set when the outcome is [OutcomeWaitingApproval].
	Approval *ApprovalRequest
	// Err is the cause of failed and cancelled outcomes, if any.
	Err error
}

// Final returns true when no further interaction is expected for the task.
func (r Result) Final() bool { return r.Outcome != OutcomeWaitingApproval }

// Skill is a capability available on the backend.
type Skill struct {
	ID          string
	Name        string
	Description string
}

// Tool is a tool available on the backend.
type Tool struct {
	ID          string
	Name        string
	Description string
}

// HistoryEntry is a locally journaled task interaction.
type HistoryEntry struct {
	ID          string
	TaskID      string
	Description string
	Outcome     Outcome
	Text        string
	CreatedAt   time.Time
}

// StepStatus is the display status of a progress step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
)

// ProgressStep is one of the canonical task processing stages.
type ProgressStep struct {
	Stage  string
	Label  string
	Status StepStatus
}

// Progress is the processing progress of the current task.
type Progress struct {
	Visible bool
	// Stage is the last stage reported by the backend.
	Stage string
	Steps []ProgressStep
	// Artifacts are attached shortly after the task is completed.
	Artifacts []Artifact
}

// MessageRole is the author of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a line of the conversation.
type Message struct {
	Role MessageRole
	Text string
	At   time.Time
}

// Presenter receives the client state changes. The calls are made one at a
// time from the client loop.
type Presenter interface {
	ConnectivityChanged(connected bool)
	ProgressChanged(p Progress)
	ApprovalRequested(req ApprovalRequest)
	ApprovalDismissed()
	MessageAdded(msg Message)
}

// presenterAdapter adapts a public Presenter to the internal session one.
type presenterAdapter struct {
	p Presenter
}

func (a presenterAdapter) ConnectivityChanged(c bool) { a.p.ConnectivityChanged(c) }
func (a presenterAdapter) ProgressChanged(v progress.View) {
	a.p.ProgressChanged(fromInternalView(v))
}
func (a presenterAdapter) ApprovalRequested(req model.ApprovalRequest) {
	a.p.ApprovalRequested(fromInternalApproval(req))
}
func (a presenterAdapter) ApprovalDismissed() { a.p.ApprovalDismissed() }
func (a presenterAdapter) MessageAdded(m model.Message) {
	a.p.MessageAdded(Message{Role: MessageRole(m.Role), Text: m.Text, At: m.At})
}

// --- Conversion helpers ---

func fromInternalArtifacts(as []model.Artifact) []Artifact {
	if len(as) == 0 {
		return nil
	}
	result := make([]Artifact, len(as))
	for i, a := range as {
		result[i] = Artifact{Path: a.Path, Type: a.Type, Description: a.Description}
	}
	return result
}

func fromInternalApproval(req model.ApprovalRequest) ApprovalRequest {
	steps := make([]ApprovalStep, len(req.Steps))
	for i, s := range req.Steps {
		steps[i] = ApprovalStep{Description: s.Description, RiskLevel: string(s.RiskLevel)}
	}
	return ApprovalRequest{TaskID: req.TaskID, Steps: steps}
}

func fromInternalResult(r session.Result) Result {
	res := Result{
		Outcome:     Outcome(r.Outcome),
		TaskID:      r.TaskID,
		Description: r.Description,
		Text:        r.Text,
		Artifacts:   fromInternalArtifacts(r.Artifacts),
		Err:         mapError(r.Err),
	}
	if r.Approval != nil {
		a := fromInternalApproval(*r.Approval)
		res.Approval = &a
	}
	return res
}

func fromInternalView(v progress.View) Progress {
	steps := make([]ProgressStep, len(v.Steps))
	for i, s := range v.Steps {
		steps[i] = ProgressStep{Stage: string(s.Stage), Label: s.Label, Status: StepStatus(s.Status)}
	}
	return Progress{
		Visible:   v.Visible,
		Stage:     string(v.Stage),
		Steps:     steps,
		Artifacts: fromInternalArtifacts(v.Artifacts),
	}
}

func fromInternalHistory(es []model.HistoryEntry) []HistoryEntry {
	result := make([]HistoryEntry, len(es))
	for i, e := range es {
		result[i] = HistoryEntry{
			ID:          e.ID,
			TaskID:      e.TaskID,
			Description: e.Description,
			Outcome:     Outcome(e.Outcome),
			Text:        e.Text,
			CreatedAt:   e.CreatedAt,
		}
	}
	return result
}

func fromInternalSkills(ss []model.Skill) []Skill {
	result := make([]Skill, len(ss))
	for i, s := range ss {
		result[i] = Skill{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	return result
}

func fromInternalTools(ts []model.Tool) []Tool {
	result := make([]Tool, len(ts))
	for i, t := range ts {
		result[i] = Tool{ID: t.ID, Name: t.Name, Description: t.Description}
	}
	return result
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrRequestFailed):
		return joinErrors(err, ErrRequestFailed)
	case errors.Is(err, session.ErrSubmissionInFlight):
		return joinErrors(err, ErrSubmissionInFlight)
	case errors.Is(err, session.ErrNotRunning):
		return joinErrors(err, ErrNotRunning)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
