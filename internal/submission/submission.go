package submission

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/jarvis/internal/backend"
	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
)

const (
	// DefaultCompletedText is used when a completed task reply has no summary.
	DefaultCompletedText = "Task completed"
	// FailureText is shown to the user for any failed submission.
	FailureText = "Sorry, something went wrong while processing the task. Please try again later."
)

// OutcomeKind is the classification of a task submission reply.
type OutcomeKind string

const (
	OutcomeNeedsApproval OutcomeKind = "needs_approval"
	OutcomeAnswer        OutcomeKind = "answer"
	OutcomeCompleted     OutcomeKind = "completed"
	OutcomeFailed        OutcomeKind = "failed"
)

// Outcome is the result of a task submission. Exactly one kind applies.
type Outcome struct {
	Kind OutcomeKind
	// Approval is only set on OutcomeNeedsApproval.
	Approval model.ApprovalRequest
	// Text is the user visible text: the answer, the summary or the apology.
	Text      string
	Artifacts []model.Artifact
	// Err is the failure cause, only set on OutcomeFailed.
	Err error
}

// ClientConfig is the configuration of the submission client.
type ClientConfig struct {
	Backend backend.Client
	Logger  log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend client is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "submission.Client"})
	return nil
}

// Client submits natural language tasks and classifies the replies.
type Client struct {
	backend backend.Client
	logger  log.Logger
}

// NewClient returns a new submission client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		backend: cfg.Backend,
		logger:  cfg.Logger,
	}, nil
}

// Submit sends the task and classifies the reply. Errors are never returned,
// they are part of the failed outcome.
func (c *Client) Submit(ctx context.Context, description string) Outcome {
	if strings.TrimSpace(description) == "" {
		return failed(fmt.Errorf("task description is required: %w", model.ErrNotValid))
	}

	reply, err := c.backend.CreateTask(ctx, description)
	if err != nil {
		c.logger.Errorf("Task submission failed: %s", err)
		return failed(err)
	}

	out := Classify(reply)
	if out.Kind == OutcomeFailed {
		c.logger.Errorf("Task submission failed: %s", out.Err)
	} else {
		c.logger.Debugf("Task submission classified as %s", out.Kind)
	}

	return out
}

// Classify maps a task reply to its outcome.
func Classify(reply *model.TaskReply) Outcome {
	if reply == nil {
		return failed(fmt.Errorf("missing task reply: %w", model.ErrRequestFailed))
	}

	switch {
	case reply.Status == model.TaskStatusWaitingApproval:
		// Without task id the decision could never be posted, so no approval
		// panel is shown for it and the reply is a failure.
		if reply.TaskID == "" {
			return failed(fmt.Errorf("waiting approval reply without task id: %w", model.ErrRequestFailed))
		}
		return Outcome{
			Kind: OutcomeNeedsApproval,
			Approval: model.ApprovalRequest{
				TaskID: reply.TaskID,
				Steps:  reply.Steps,
			},
		}

	case reply.QA:
		text := reply.Answer
		if text == "" {
			text = DefaultCompletedText
		}
		return Outcome{Kind: OutcomeAnswer, Text: text}

	default:
		text := reply.Summary
		if text == "" {
			text = DefaultCompletedText
		}
		return Outcome{Kind: OutcomeCompleted, Text: text, Artifacts: reply.Artifacts}
	}
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Text: FailureText, Err: err}
}
