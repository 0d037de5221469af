package chat_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/app/chat"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/session"
)

type call struct {
	op   string
	text string
}

type fakeSession struct {
	calls      []call
	submitErr  error
	resolveOK  bool
	resolveErr error
	// reply publishes the result of an accepted request, an answer is
	// published right away by default.
	reply   func(results chan<- session.Result)
	results chan session.Result
}

func (f *fakeSession) Submit(_ context.Context, text string) error {
	f.calls = append(f.calls, call{op: "submit", text: text})
	if f.submitErr == nil {
		f.publish()
	}
	return f.submitErr
}

func (f *fakeSession) Resolve(_ context.Context, approved bool) (bool, error) {
	f.calls = append(f.calls, call{op: "resolve", text: fmt.Sprint(approved)})
	if f.resolveOK && f.resolveErr == nil {
		f.publish()
	}
	return f.resolveOK, f.resolveErr
}

func (f *fakeSession) Results() <-chan session.Result {
	if f.results == nil {
		f.results = make(chan session.Result, 16)
	}
	return f.results
}

func (f *fakeSession) publish() {
	if f.reply != nil {
		go f.reply(f.results)
		return
	}
	f.results <- session.Result{Outcome: model.HistoryOutcomeAnswered}
}

func (f *fakeSession) HideProgress(context.Context) error {
	f.calls = append(f.calls, call{op: "hide"})
	return nil
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config chat.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: chat.ServiceConfig{Session: &fakeSession{}, Input: strings.NewReader("")},
		},
		"missing session should fail": {
			config: chat.ServiceConfig{Input: strings.NewReader("")},
			expErr: true,
		},
		"missing input should fail": {
			config: chat.ServiceConfig{Session: &fakeSession{}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := chat.NewService(test.config)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	tests := map[string]struct {
		input     string
		session   *fakeSession
		expCalls  []call
		expOutput string
		expErr    bool
	}{
		"lines should be submitted as tasks": {
			input:   "list files\n\n  what time is it  \n",
			session: &fakeSession{},
			expCalls: []call{
				{op: "submit", text: "list files"},
				{op: "submit", text: "what time is it"},
			},
		},
		"approval commands should resolve the approval": {
			input:   "/approve\n/REJECT\n",
			session: &fakeSession{resolveOK: true},
			expCalls: []call{
				{op: "resolve", text: "true"},
				{op: "resolve", text: "false"},
			},
		},
		"approving without a pending approval should notify": {
			input:     "/approve\n",
			session:   &fakeSession{},
			expCalls:  []call{{op: "resolve", text: "true"}},
			expOutput: "There is no pending approval.\n",
		},
		"hide should hide the progress": {
			input:    "/hide\n",
			session:  &fakeSession{},
			expCalls: []call{{op: "hide"}},
		},
		"quit should stop reading": {
			input:    "a\n/quit\nb\n",
			session:  &fakeSession{},
			expCalls: []call{{op: "submit", text: "a"}},
		},
		"unknown commands should notify": {
			input:     "/dance\n",
			session:   &fakeSession{},
			expOutput: "Unknown command \"/dance\", use /help.\n",
		},
		"a submission in flight should notify": {
			input:     "a\n",
			session:   &fakeSession{submitErr: session.ErrSubmissionInFlight},
			expCalls:  []call{{op: "submit", text: "a"}},
			expOutput: "A task is already being submitted, wait for its reply.\n",
		},
		"a stopped session should fail": {
			input:    "a\n",
			session:  &fakeSession{submitErr: session.ErrNotRunning},
			expCalls: []call{{op: "submit", text: "a"}},
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			out := &bytes.Buffer{}
			svc, err := chat.NewService(chat.ServiceConfig{
				Session: test.session,
				Input:   strings.NewReader(test.input),
				Output:  out,
			})
			require.NoError(err)

			err = svc.Run(context.Background(), chat.Request{})
			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
			assert.Equal(test.expCalls, test.session.calls)
			assert.Equal(test.expOutput, out.String())
		})
	}
}

func TestService_RunWaitsForTheReplyInFlight(t *testing.T) {
	tests := map[string]struct {
		timeout   time.Duration
		reply     func(out *bytes.Buffer) func(results chan<- session.Result)
		expOutput string
	}{
		"The reply of a task submitted before the input ends should be rendered.": {
			timeout: 5 * time.Second,
			reply: func(out *bytes.Buffer) func(results chan<- session.Result) {
				return func(results chan<- session.Result) {
					time.Sleep(50 * time.Millisecond)
					out.WriteString("jarvis> You asked\n")
					results <- session.Result{Outcome: model.HistoryOutcomeAnswered}
				}
			},
			expOutput: "jarvis> You asked\n",
		},

		"A reply waiting for approval should end the chat once the input ended.": {
			timeout: 5 * time.Second,
			reply: func(out *bytes.Buffer) func(results chan<- session.Result) {
				return func(results chan<- session.Result) {
					out.WriteString("Approval required for task t1\n")
					results <- session.Result{Outcome: model.HistoryOutcomeWaitingApproval, TaskID: "t1"}
				}
			},
			expOutput: "Approval required for task t1\n",
		},

		"A reply that never arrives should stop waiting when the context ends.": {
			timeout: 100 * time.Millisecond,
			reply: func(out *bytes.Buffer) func(results chan<- session.Result) {
				return func(chan<- session.Result) {}
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			out := &bytes.Buffer{}
			fs := &fakeSession{reply: test.reply(out)}
			svc, err := chat.NewService(chat.ServiceConfig{
				Session: fs,
				Input:   strings.NewReader("what is jarvis?\n"),
				Output:  io.Discard,
			})
			require.NoError(err)

			ctx, cancel := context.WithTimeout(context.Background(), test.timeout)
			defer cancel()

			err = svc.Run(ctx, chat.Request{})
			require.NoError(err)
			assert.Equal([]call{{op: "submit", text: "what is jarvis?"}}, fs.calls)
			assert.Equal(test.expOutput, out.String())
		})
	}
}
