package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default jarvis data directory name (relative to home).
	DefaultDataDir = ".jarvis"
	// DBFile is the local history database filename.
	DBFile = "jarvis.db"
	// ConfigFile is the optional client config filename.
	ConfigFile = "config.yaml"
	// EnvFile is the dotenv file loaded from the working directory.
	EnvFile = ".env"

	// DefaultServerURL is the backend used when none is configured.
	DefaultServerURL = "http://localhost:8000"
	// DefaultDevBackendAddress is the listen address of the development backend.
	DefaultDevBackendAddress = "127.0.0.1:8000"
)

// DBPath returns the history database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ConfigPath returns the client config path inside a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFile)
}
