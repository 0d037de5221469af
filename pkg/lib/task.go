package lib

import (
	"context"
	"fmt"

	"github.com/slok/jarvis/internal/app/catalog"
	"github.com/slok/jarvis/internal/app/history"
	apprun "github.com/slok/jarvis/internal/app/run"
	"github.com/slok/jarvis/internal/model"
)

// Decider decides on an approval request, true approves it.
type Decider func(ctx context.Context, req ApprovalRequest) (bool, error)

// AlwaysApprove is a [Decider] that approves every request.
func AlwaysApprove(context.Context, ApprovalRequest) (bool, error) { return true, nil }

// AlwaysReject is a [Decider] that rejects every request.
func AlwaysReject(context.Context, ApprovalRequest) (bool, error) { return false, nil }

// Submit submits a new task. It returns once the task has been submitted, the
// outcome is received with [Client.NextResult].
//
// Returns [ErrNotValid] for empty descriptions, [ErrSubmissionInFlight] if the
// previous submission didn't finish and [ErrNotRunning] if the client loop is
// not running.
func (c *Client) Submit(ctx context.Context, description string) error {
	return mapError(c.session.Submit(ctx, description))
}

// Approve approves the pending approval request. It returns false if there
// was no pending request.
func (c *Client) Approve(ctx context.Context) (bool, error) {
	ok, err := c.session.Resolve(ctx, true)
	return ok, mapError(err)
}

// Reject rejects the pending approval request. It returns false if there was
// no pending request.
func (c *Client) Reject(ctx context.Context) (bool, error) {
	ok, err := c.session.Resolve(ctx, false)
	return ok, mapError(err)
}

// HideProgress hides the progress until the next stage is received.
func (c *Client) HideProgress(ctx context.Context) error {
	return mapError(c.session.HideProgress(ctx))
}

// NextResult waits for the next task interaction result.
func (c *Client) NextResult(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-c.session.Results():
		res := fromInternalResult(r)
		return &res, nil
	}
}

// RunTask submits a task and waits for its final result. Approval requests are
// decided with the decider, a nil decider rejects them.
func (c *Client) RunTask(ctx context.Context, description string, decide Decider) (*Result, error) {
	req := apprun.Request{Description: description}
	if decide != nil {
		req.Decider = func(ctx context.Context, r model.ApprovalRequest) (bool, error) {
			return decide(ctx, fromInternalApproval(r))
		}
	}

	r, err := c.runner.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	res := fromInternalResult(*r)
	return &res, nil
}

// ListSkills returns the skills available on the backend.
func (c *Client) ListSkills(ctx context.Context) ([]Skill, error) {
	res, err := c.catalog.Run(ctx, catalog.Request{Kind: catalog.KindSkills})
	if err != nil {
		return nil, mapError(err)
	}
	return fromInternalSkills(res.Skills), nil
}

// ListTools returns the tools available on the backend.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := c.catalog.Run(ctx, catalog.Request{Kind: catalog.KindTools})
	if err != nil {
		return nil, mapError(err)
	}
	return fromInternalTools(res.Tools), nil
}

// HistoryOpts are the options for [Client.History].
type HistoryOpts struct {
	// Limit is the max number of entries, 0 returns all of them.
	Limit int
	// Outcome only returns the entries with this outcome.
	Outcome *Outcome
}

// History returns the journaled task interactions, latest first. opts may be nil.
func (c *Client) History(ctx context.Context, opts *HistoryOpts) ([]HistoryEntry, error) {
	req := history.Request{}
	if opts != nil {
		req.Limit = opts.Limit
		if opts.Outcome != nil {
			o := model.HistoryOutcome(*opts.Outcome)
			req.OutcomeFilter = &o
		}
	}

	es, err := c.history.Run(ctx, req)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not get history: %w", err))
	}
	return fromInternalHistory(es), nil
}
