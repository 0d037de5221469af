package submission_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/backend/backendmock"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/submission"
)

func TestNewClient(t *testing.T) {
	_, err := submission.NewClient(submission.ClientConfig{})
	assert.Error(t, err)
}

func TestClientSubmit(t *testing.T) {
	tests := map[string]struct {
		description string
		mock        func(m *backendmock.MockClient)
		expOutcome  submission.Outcome
		expErrIs    error
	}{
		"A waiting approval reply should need approval.": {
			description: "list files",
			mock: func(m *backendmock.MockClient) {
				m.On("CreateTask", mock.Anything, "list files").Once().Return(&model.TaskReply{
					Status: model.TaskStatusWaitingApproval,
					TaskID: "t1",
					Steps:  []model.ApprovalStep{{Description: "ls -la", RiskLevel: model.RiskLevelR2}},
				}, nil)
			},
			expOutcome: submission.Outcome{
				Kind: submission.OutcomeNeedsApproval,
				Approval: model.ApprovalRequest{
					TaskID: "t1",
					Steps:  []model.ApprovalStep{{Description: "ls -la", RiskLevel: model.RiskLevelR2}},
				},
			},
		},

		"A QA reply should be an answer.": {
			description: "what time is it?",
			mock: func(m *backendmock.MockClient) {
				m.On("CreateTask", mock.Anything, "what time is it?").Once().Return(&model.TaskReply{
					Status: model.TaskStatusAnswered,
					QA:     true,
					Answer: "It's 10:00",
				}, nil)
			},
			expOutcome: submission.Outcome{Kind: submission.OutcomeAnswer, Text: "It's 10:00"},
		},

		"A completed reply should use the summary.": {
			description: "write a report",
			mock: func(m *backendmock.MockClient) {
				m.On("CreateTask", mock.Anything, "write a report").Once().Return(&model.TaskReply{
					Status:    model.TaskStatusCompleted,
					Summary:   "Report written",
					Artifacts: []model.Artifact{{Path: "report.md"}},
				}, nil)
			},
			expOutcome: submission.Outcome{
				Kind:      submission.OutcomeCompleted,
				Text:      "Report written",
				Artifacts: []model.Artifact{{Path: "report.md"}},
			},
		},

		"A completed reply without summary should use the default text.": {
			description: "do it",
			mock: func(m *backendmock.MockClient) {
				m.On("CreateTask", mock.Anything, "do it").Once().Return(&model.TaskReply{Status: model.TaskStatusCompleted}, nil)
			},
			expOutcome: submission.Outcome{Kind: submission.OutcomeCompleted, Text: submission.DefaultCompletedText},
		},

		"An unknown status should be completed.": {
			description: "do it",
			mock: func(m *backendmock.MockClient) {
				m.On("CreateTask", mock.Anything, "do it").Once().Return(&model.TaskReply{Status: "weird", Summary: "ok"}, nil)
			},
			expOutcome: submission.Outcome{Kind: submission.OutcomeCompleted, Text: "ok"},
		},

		"A waiting approval reply without task id should fail.": {
			description: "do it",
			mock: func(m *backendmock.MockClient) {
				m.On("CreateTask", mock.Anything, "do it").Once().Return(&model.TaskReply{Status: model.TaskStatusWaitingApproval}, nil)
			},
			expOutcome: submission.Outcome{Kind: submission.OutcomeFailed, Text: submission.FailureText},
			expErrIs:   model.ErrRequestFailed,
		},

		"A request failure should fail with the apology text.": {
			description: "do it",
			mock: func(m *backendmock.MockClient) {
				err := fmt.Errorf("could not create task: %w", model.ErrRequestFailed)
				m.On("CreateTask", mock.Anything, "do it").Once().Return(nil, err)
			},
			expOutcome: submission.Outcome{Kind: submission.OutcomeFailed, Text: submission.FailureText},
			expErrIs:   model.ErrRequestFailed,
		},

		"An empty description should fail without requesting.": {
			description: "   ",
			mock:        func(m *backendmock.MockClient) {},
			expOutcome:  submission.Outcome{Kind: submission.OutcomeFailed, Text: submission.FailureText},
			expErrIs:    model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mb := &backendmock.MockClient{}
			test.mock(mb)

			c, err := submission.NewClient(submission.ClientConfig{Backend: mb})
			require.NoError(err)

			out := c.Submit(context.Background(), test.description)

			if test.expErrIs != nil {
				assert.True(errors.Is(out.Err, test.expErrIs))
				out.Err = nil
			}
			assert.Equal(test.expOutcome, out)
			mb.AssertExpectations(t)
		})
	}
}

func TestClassifyNilReply(t *testing.T) {
	out := submission.Classify(nil)
	assert.Equal(t, submission.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, model.ErrRequestFailed)
}
