package jarvis

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slok/jarvis/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "jarvis"
	}

	// Relative paths are not valid because go test changes the CWD to the
	// test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("JARVIS_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("jarvis binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "JARVIS_INTEGRATION"
		envBinary     = "JARVIS_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{Binary: os.Getenv(envBinary)}
	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Env is an isolated jarvis environment: a running dev backend and a temp history DB.
type Env struct {
	Config    Config
	ServerURL string
	DBPath    string
}

// NewEnv starts a dev backend for the test, it's stopped on cleanup.
func NewEnv(t *testing.T, config Config) Env {
	t.Helper()

	addr := freeAddress(t)
	ctx, cancel := context.WithCancel(context.Background())
	cmd, err := testutils.StartJarvis(ctx, nil, config.Binary, []string{"dev-backend", "--listen-address", addr, "--stage-delay", "10ms"}, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		_ = cmd.Wait()
	})

	serverURL := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(serverURL + "/api/skills")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond, "dev backend did not start")

	dir := t.TempDir()
	return Env{
		Config:    config,
		ServerURL: serverURL,
		DBPath:    filepath.Join(dir, "jarvis.db"),
	}
}

// Run runs a jarvis command on the environment.
func (e Env) Run(ctx context.Context, stdin io.Reader, args ...string) (stdout, stderr []byte, err error) {
	env := []string{
		"JARVIS_SERVER_URL=" + e.ServerURL,
		"JARVIS_DB_PATH=" + e.DBPath,
		"JARVIS_CONFIG=" + filepath.Join(filepath.Dir(e.DBPath), "missing.yaml"),
	}
	return testutils.RunJarvisArgs(ctx, env, e.Config.Binary, append([]string{"--no-color"}, args...), stdin, true)
}

func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
