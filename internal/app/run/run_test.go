package run_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/app/run"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/session"
)

// fakeSession publishes a scripted result after every submit and resolve.
type fakeSession struct {
	submitErr error
	onSubmit  session.Result
	onResolve map[bool]session.Result
	resolveOK bool
	results   chan session.Result
	decisions []bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{results: make(chan session.Result, 4), resolveOK: true}
}

func (f *fakeSession) Submit(_ context.Context, text string) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	r := f.onSubmit
	r.Description = text
	f.results <- r
	return nil
}

func (f *fakeSession) Resolve(_ context.Context, approved bool) (bool, error) {
	f.decisions = append(f.decisions, approved)
	if !f.resolveOK {
		return false, nil
	}
	f.results <- f.onResolve[approved]
	return true, nil
}

func (f *fakeSession) Results() <-chan session.Result { return f.results }

func TestNewService(t *testing.T) {
	_, err := run.NewService(run.ServiceConfig{})
	assert.Error(t, err)

	svc, err := run.NewService(run.ServiceConfig{Session: newFakeSession()})
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestService_Run(t *testing.T) {
	approvalReq := &model.ApprovalRequest{TaskID: "t1", Steps: []model.ApprovalStep{{Description: "rm", RiskLevel: model.RiskLevelHigh}}}
	waiting := session.Result{Outcome: model.HistoryOutcomeWaitingApproval, TaskID: "t1", Approval: approvalReq}
	onResolve := map[bool]session.Result{
		true:  {Outcome: model.HistoryOutcomeCompleted, TaskID: "t1", Text: "done"},
		false: {Outcome: model.HistoryOutcomeCancelled, TaskID: "t1", Text: "Task cancelled."},
	}

	tests := map[string]struct {
		session      func() *fakeSession
		req          run.Request
		expOutcome   model.HistoryOutcome
		expDecisions []bool
		expErr       bool
	}{
		"an answered task should return directly": {
			session: func() *fakeSession {
				f := newFakeSession()
				f.onSubmit = session.Result{Outcome: model.HistoryOutcomeAnswered, Text: "4"}
				return f
			},
			req:        run.Request{Description: "2+2"},
			expOutcome: model.HistoryOutcomeAnswered,
		},
		"an approval with the default decider should reject": {
			session: func() *fakeSession {
				f := newFakeSession()
				f.onSubmit = waiting
				f.onResolve = onResolve
				return f
			},
			req:          run.Request{Description: "delete"},
			expOutcome:   model.HistoryOutcomeCancelled,
			expDecisions: []bool{false},
		},
		"an approval with an approving decider should complete": {
			session: func() *fakeSession {
				f := newFakeSession()
				f.onSubmit = waiting
				f.onResolve = onResolve
				return f
			},
			req:          run.Request{Description: "delete", Decider: run.AlwaysApprove},
			expOutcome:   model.HistoryOutcomeCompleted,
			expDecisions: []bool{true},
		},
		"a decider error should fail": {
			session: func() *fakeSession {
				f := newFakeSession()
				f.onSubmit = waiting
				return f
			},
			req: run.Request{Description: "delete", Decider: func(context.Context, model.ApprovalRequest) (bool, error) {
				return false, fmt.Errorf("boom")
			}},
			expErr: true,
		},
		"an approval that is not pending anymore should fail": {
			session: func() *fakeSession {
				f := newFakeSession()
				f.onSubmit = waiting
				f.resolveOK = false
				return f
			},
			req:          run.Request{Description: "delete", Decider: run.AlwaysApprove},
			expDecisions: []bool{true},
			expErr:       true,
		},
		"a submit error should fail": {
			session: func() *fakeSession {
				f := newFakeSession()
				f.submitErr = session.ErrSubmissionInFlight
				return f
			},
			req:    run.Request{Description: "x"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			fs := test.session()
			svc, err := run.NewService(run.ServiceConfig{Session: fs})
			require.NoError(err)

			res, err := svc.Run(context.Background(), test.req)
			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expOutcome, res.Outcome)
			}
			assert.Equal(test.expDecisions, fs.decisions)
		})
	}
}
