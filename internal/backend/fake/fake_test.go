package fake_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/internal/backend/fake"
	"github.com/slok/jarvis/internal/backend/rest"
	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/push"
)

const testTimeout = 5 * time.Second

type testEnv struct {
	server *fake.Server
	client *rest.Client
	push   *push.Manager
}

func newTestEnv(t *testing.T, cfg fake.ServerConfig) testEnv {
	t.Helper()

	if cfg.IDGen == nil {
		cfg.IDGen = func() string { return "t1" }
	}
	srv, err := fake.NewServer(cfg)
	require.NoError(t, err)

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	client, err := rest.NewClient(rest.ClientConfig{BaseURL: hs.URL})
	require.NoError(t, err)

	wsURL, err := push.URLFromBase(hs.URL)
	require.NoError(t, err)
	m, err := push.NewManager(push.ManagerConfig{URL: wsURL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case e := <-m.Events():
		require.Equal(t, push.EventConnected, e.Kind)
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for connection")
	}
	require.Eventually(t, func() bool { return srv.ConnectedClients() == 1 }, testTimeout, 5*time.Millisecond)

	return testEnv{server: srv, client: client, push: m}
}

func receiveStages(t *testing.T, m *push.Manager, n int) []model.StageEvent {
	t.Helper()

	var events []model.StageEvent
	for len(events) < n {
		select {
		case e := <-m.Events():
			if e.Kind == push.EventMessage && e.Message.Type == model.PushMessageTypeTaskUpdate {
				events = append(events, e.Message.Event)
			}
		case <-time.After(testTimeout):
			t.Fatalf("timeout waiting for stages, got %d", len(events))
		}
	}
	return events
}

func stagesOf(events []model.StageEvent) []model.Stage {
	stages := []model.Stage{}
	for _, e := range events {
		stages = append(stages, e.Stage)
	}
	return stages
}

func TestServerApprovalFlow(t *testing.T) {
	tests := map[string]struct {
		approved  bool
		expStatus model.TaskStatus
		expStage  model.Stage
	}{
		"Approving should execute the task.": {
			approved:  true,
			expStatus: model.TaskStatusCompleted,
			expStage:  model.StageCompleted,
		},

		"Rejecting should cancel the task.": {
			approved:  false,
			expStatus: model.TaskStatusCancelled,
			expStage:  model.StageCancelled,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)
			ctx := context.Background()
			env := newTestEnv(t, fake.ServerConfig{})

			reply, err := env.client.CreateTask(ctx, "list files")
			require.NoError(err)
			assert.Equal(model.TaskStatusWaitingApproval, reply.Status)
			assert.Equal("t1", reply.TaskID)
			require.Len(reply.Steps, 1)
			assert.Equal(model.RiskLevelR2, reply.Steps[0].RiskLevel)

			events := receiveStages(t, env.push, 9)
			expStages := []model.Stage{
				model.StageReceived, model.StageTaskCreated, model.StageBuildingContext, model.StageContextBuilt,
				model.StageRouting, model.StageRouted, model.StagePlanning, model.StagePlanned, model.StageWaitingApproval,
			}
			assert.Equal(expStages, stagesOf(events))
			assert.Equal("t1", events[1].Data.TaskID)

			areply, err := env.client.ApproveTask(ctx, model.ApprovalDecision{TaskID: "t1", Approved: test.approved})
			require.NoError(err)
			assert.Equal(test.expStatus, areply.Status)

			events = receiveStages(t, env.push, 1)
			assert.Equal(test.expStage, events[0].Stage)

			// The task is not pending anymore.
			_, err = env.client.ApproveTask(ctx, model.ApprovalDecision{TaskID: "t1", Approved: true})
			assert.True(errors.Is(err, model.ErrRequestFailed))
		})
	}
}

func TestServerDirectExecution(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	env := newTestEnv(t, fake.ServerConfig{})

	reply, err := env.client.CreateTask(context.Background(), "summarize the readme")
	require.NoError(err)
	assert.Equal(model.TaskStatusCompleted, reply.Status)
	assert.Equal("Executed: summarize the readme", reply.Summary)
	assert.Equal([]model.Artifact{{Path: "output/t1.txt", Type: "file", Description: "Execution output"}}, reply.Artifacts)

	events := receiveStages(t, env.push, 10)
	assert.Equal(model.CanonicalStages(), stagesOf(events))
	assert.Equal(reply.Artifacts, events[9].Data.Artifacts)
}

func TestServerQA(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	env := newTestEnv(t, fake.ServerConfig{})

	reply, err := env.client.CreateTask(context.Background(), "what can you do?")
	require.NoError(err)
	assert.True(reply.QA)
	assert.True(strings.Contains(reply.Answer, "what can you do?"))

	events := receiveStages(t, env.push, 6)
	assert.Equal(model.StageCompleted, events[5].Stage)
}

func TestServerFailure(t *testing.T) {
	env := newTestEnv(t, fake.ServerConfig{
		Planner: fake.PlannerFunc(func(_, _ string) fake.Plan { return fake.Plan{Err: errors.New("no tools available")} }),
	})

	_, err := env.client.CreateTask(context.Background(), "anything")
	assert.True(t, errors.Is(err, model.ErrRequestFailed))

	events := receiveStages(t, env.push, 6)
	assert.Equal(t, model.StageError, events[5].Stage)
}

func TestServerCatalog(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	env := newTestEnv(t, fake.ServerConfig{
		Skills: []model.Skill{{ID: "s1", Name: "Skill 1", Description: "First"}},
	})

	skills, err := env.client.ListSkills(context.Background())
	require.NoError(err)
	assert.Equal([]model.Skill{{ID: "s1", Name: "Skill 1", Description: "First"}}, skills)

	tools, err := env.client.ListTools(context.Background())
	require.NoError(err)
	assert.Equal(fake.DefaultTools, tools)
}

func TestServerPingPong(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t, fake.ServerConfig{})

	require.NoError(env.push.Send(context.Background(), map[string]string{"type": "ping"}))

	select {
	case e := <-env.push.Events():
		require.Equal(model.PushMessageTypePong, e.Message.Type)
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for pong")
	}
}
