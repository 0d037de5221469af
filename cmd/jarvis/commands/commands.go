package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/jarvis/internal/conventions"
	"github.com/slok/jarvis/internal/log"
	"github.com/slok/jarvis/internal/model"
	storageio "github.com/slok/jarvis/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug          bool
	NoLog          bool
	NoColor        bool
	LoggerType     string
	DBPath         string
	ServerURL      string
	ConfigPath     string
	ReconnectDelay time.Duration
	ArtifactsDelay time.Duration
	PingInterval   time.Duration

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger and output color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	dataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("config", "Path to the YAML client config file, ignored if missing.").Default(conventions.ConfigPath(dataDir)).StringVar(&c.ConfigPath)
	app.Flag("server-url", "Jarvis backend URL (default: "+conventions.DefaultServerURL+").").StringVar(&c.ServerURL)
	app.Flag("db-path", "Path to the SQLite history database file (default: "+conventions.DBPath(dataDir)+").").StringVar(&c.DBPath)
	app.Flag("reconnect-delay", "Delay before reconnecting the push channel.").DurationVar(&c.ReconnectDelay)
	app.Flag("artifacts-delay", "Delay to show the artifacts of a completed task.").DurationVar(&c.ArtifactsDelay)
	app.Flag("ping-interval", "Push channel keepalive ping interval, disabled when 0.").DurationVar(&c.PingInterval)

	return c
}

// ClientConfig returns the client configuration. Flags take precedence over the
// config file and the config file over the defaults.
func (c RootCommand) ClientConfig(ctx context.Context) (model.ClientConfig, error) {
	fileCfg, err := c.loadConfigFile(ctx)
	if err != nil {
		return model.ClientConfig{}, err
	}

	cfg := mergeClientConfig(
		model.ClientConfig{
			ServerURL:      c.ServerURL,
			ReconnectDelay: c.ReconnectDelay,
			ArtifactsDelay: c.ArtifactsDelay,
			PingInterval:   c.PingInterval,
			DBPath:         c.DBPath,
		},
		fileCfg,
		model.ClientConfig{
			ServerURL: conventions.DefaultServerURL,
			DBPath:    conventions.DBPath(filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)),
		},
	)

	if err := cfg.Validate(); err != nil {
		return model.ClientConfig{}, fmt.Errorf("invalid client config: %w", err)
	}

	return cfg, nil
}

func (c RootCommand) loadConfigFile(ctx context.Context) (model.ClientConfig, error) {
	if c.ConfigPath == "" {
		return model.ClientConfig{}, nil
	}

	dir, file := filepath.Split(c.ConfigPath)
	if dir == "" {
		dir = "."
	}

	cfg, err := storageio.NewConfigYAMLRepository(os.DirFS(dir)).GetConfig(ctx, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Logger.Debugf("Config file %s not found, ignoring", c.ConfigPath)
			return model.ClientConfig{}, nil
		}
		return model.ClientConfig{}, fmt.Errorf("could not load config file %s: %w", c.ConfigPath, err)
	}

	return cfg, nil
}

// mergeClientConfig returns the first non zero value of each field, in order.
func mergeClientConfig(cfgs ...model.ClientConfig) model.ClientConfig {
	res := model.ClientConfig{}
	for _, cfg := range cfgs {
		if res.ServerURL == "" {
			res.ServerURL = cfg.ServerURL
		}
		if res.DBPath == "" {
			res.DBPath = cfg.DBPath
		}
		if res.ReconnectDelay == 0 {
			res.ReconnectDelay = cfg.ReconnectDelay
		}
		if res.ArtifactsDelay == 0 {
			res.ArtifactsDelay = cfg.ArtifactsDelay
		}
		if res.PingInterval == 0 {
			res.PingInterval = cfg.PingInterval
		}
	}
	return res
}
