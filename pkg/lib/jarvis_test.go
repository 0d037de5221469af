package lib_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/backend/fake"
	"github.com/slok/jarvis/pkg/lib"
)

const testTimeout = 5 * time.Second

type recorder struct {
	mu       sync.Mutex
	progress []lib.Progress
	messages []lib.Message
}

func (r *recorder) ConnectivityChanged(bool) {}
func (r *recorder) ProgressChanged(p lib.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}
func (r *recorder) ApprovalRequested(lib.ApprovalRequest) {}
func (r *recorder) ApprovalDismissed()                    {}
func (r *recorder) MessageAdded(m lib.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *recorder) lastProgress() (lib.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.progress) == 0 {
		return lib.Progress{}, false
	}
	return r.progress[len(r.progress)-1], true
}

// newTestClient creates a running client against a fake backend, with a temp SQLite DB.
func newTestClient(t *testing.T, presenter lib.Presenter) *lib.Client {
	t.Helper()

	srv, err := fake.NewServer(fake.ServerConfig{})
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	client, err := lib.New(context.Background(), lib.Config{
		ServerURL:      hs.URL,
		DBPath:         filepath.Join(t.TempDir(), "test.db"),
		ArtifactsDelay: 10 * time.Millisecond,
		Presenter:      presenter,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = client.Close()
	})

	require.Eventually(t, client.Connected, testTimeout, 5*time.Millisecond)

	return client
}

func TestNewValidation(t *testing.T) {
	tests := map[string]struct {
		cfg    lib.Config
		expErr error
	}{
		"Missing server URL should fail.": {
			cfg:    lib.Config{DisableHistory: true},
			expErr: lib.ErrNotValid,
		},
		"A non HTTP server URL should fail.": {
			cfg:    lib.Config{ServerURL: "ftp://localhost", DisableHistory: true},
			expErr: lib.ErrNotValid,
		},
		"A negative reconnect delay should fail.": {
			cfg:    lib.Config{ServerURL: "http://localhost:8000", ReconnectDelay: -1, DisableHistory: true},
			expErr: lib.ErrNotValid,
		},
		"A valid config should work.": {
			cfg: lib.Config{ServerURL: "http://localhost:8000", DisableHistory: true},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client, err := lib.New(context.Background(), test.cfg)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr), "expected error %v, got: %v", test.expErr, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, client.Close())
		})
	}
}

func TestRunTask(t *testing.T) {
	tests := map[string]struct {
		description  string
		decider      lib.Decider
		expOutcome   lib.Outcome
		expArtifacts bool
	}{
		"A question should be answered.": {
			description: "what time is it?",
			expOutcome:  lib.OutcomeAnswered,
		},
		"A safe task should be completed directly.": {
			description:  "summarize the readme",
			expOutcome:   lib.OutcomeCompleted,
			expArtifacts: true,
		},
		"An approved risky task should be completed.": {
			description:  "delete the tmp files",
			decider:      lib.AlwaysApprove,
			expOutcome:   lib.OutcomeCompleted,
			expArtifacts: true,
		},
		"A risky task without decider should be rejected.": {
			description: "delete the tmp files",
			expOutcome:  lib.OutcomeCancelled,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			client := newTestClient(t, nil)

			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			res, err := client.RunTask(ctx, test.description, test.decider)
			require.NoError(err)
			assert.Equal(test.expOutcome, res.Outcome)
			assert.NotEmpty(res.Text)
			assert.True(res.Final())
			assert.Equal(test.expArtifacts, len(res.Artifacts) > 0)
		})
	}
}

func TestStepByStepApproval(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	rec := &recorder{}
	client := newTestClient(t, rec)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	// Nothing to resolve yet.
	ok, err := client.Approve(ctx)
	require.NoError(err)
	assert.False(ok)

	require.NoError(client.Submit(ctx, "install the package"))
	res, err := client.NextResult(ctx)
	require.NoError(err)
	require.Equal(lib.OutcomeWaitingApproval, res.Outcome)
	require.NotNil(res.Approval)
	assert.Equal(res.TaskID, res.Approval.TaskID)
	assert.Equal("R2", res.Approval.Steps[0].RiskLevel)

	ok, err = client.Approve(ctx)
	require.NoError(err)
	assert.True(ok)

	res, err = client.NextResult(ctx)
	require.NoError(err)
	assert.Equal(lib.OutcomeCompleted, res.Outcome)

	// The completed stage artifacts are attached to the progress after a delay.
	assert.Eventually(func() bool {
		p, ok := rec.lastProgress()
		return ok && p.Visible && p.Stage == "completed" && len(p.Artifacts) > 0
	}, testTimeout, 5*time.Millisecond)

	p, _ := rec.lastProgress()
	require.Len(p.Steps, 10)
	for _, s := range p.Steps[:9] {
		assert.Equal(lib.StepStatusCompleted, s.Status)
	}
	assert.Equal(lib.StepStatusActive, p.Steps[9].Status)

	require.NoError(client.HideProgress(ctx))
	assert.Eventually(func() bool {
		p, ok := rec.lastProgress()
		return ok && !p.Visible
	}, testTimeout, 5*time.Millisecond)
}

func TestSubmitEmptyDescription(t *testing.T) {
	client := newTestClient(t, nil)

	err := client.Submit(context.Background(), "   ")
	assert.True(t, errors.Is(err, lib.ErrNotValid), "expected not valid error, got: %v", err)
}

func TestCatalog(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	client := newTestClient(t, nil)
	ctx := context.Background()

	skills, err := client.ListSkills(ctx)
	require.NoError(err)
	assert.Len(skills, len(fake.DefaultSkills))
	assert.Equal(fake.DefaultSkills[0].ID, skills[0].ID)

	tools, err := client.ListTools(ctx)
	require.NoError(err)
	assert.Len(tools, len(fake.DefaultTools))
}

func TestHistory(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	client := newTestClient(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_, err := client.RunTask(ctx, "what is jarvis?", nil)
	require.NoError(err)
	_, err = client.RunTask(ctx, "remove the logs", lib.AlwaysReject)
	require.NoError(err)

	all, err := client.History(ctx, nil)
	require.NoError(err)
	outcomes := []lib.Outcome{}
	for _, e := range all {
		outcomes = append(outcomes, e.Outcome)
	}
	assert.ElementsMatch([]lib.Outcome{lib.OutcomeAnswered, lib.OutcomeWaitingApproval, lib.OutcomeCancelled}, outcomes)

	cancelled := lib.OutcomeCancelled
	es, err := client.History(ctx, &lib.HistoryOpts{Outcome: &cancelled})
	require.NoError(err)
	require.Len(es, 1)
	assert.NotEmpty(es[0].TaskID)
}
