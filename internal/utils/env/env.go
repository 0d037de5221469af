package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

var envKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadFiles loads dotenv files into the process environment. Missing files are
// skipped and the variables that are already set are never overridden, so the
// real environment wins over the files and earlier files win over later ones.
// It returns the files that were loaded.
func LoadFiles(paths ...string) ([]string, error) {
	loaded := []string{}
	for _, path := range paths {
		vars, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("could not read %s: %w", path, err)
		}

		for k, v := range vars {
			if !isValidKey(k) {
				return nil, fmt.Errorf("invalid environment variable key %q in %s", k, path)
			}
			if _, ok := os.LookupEnv(k); ok {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				return nil, fmt.Errorf("could not set %q: %w", k, err)
			}
		}

		loaded = append(loaded, path)
	}

	return loaded, nil
}

func isValidKey(k string) bool {
	return envKeyRegexp.MatchString(k)
}
