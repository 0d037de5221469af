package testutils

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var multiSpaceRegex = regexp.MustCompile(" +")

// RunJarvis executes a jarvis command with the given arguments string (split by spaces).
// Use RunJarvisArgs when arguments contain spaces that should be preserved.
func RunJarvis(ctx context.Context, env []string, binary, cmdArgs string, nolog bool) (stdout, stderr []byte, err error) {
	// Sanitize command.
	cmdArgs = strings.TrimSpace(cmdArgs)
	cmdArgs = multiSpaceRegex.ReplaceAllString(cmdArgs, " ")

	// Split into args.
	var args []string
	if cmdArgs != "" {
		args = strings.Split(cmdArgs, " ")
	}

	return RunJarvisArgs(ctx, env, binary, args, nil, nolog)
}

// RunJarvisArgs executes a jarvis command with pre-split arguments and an optional stdin.
// This preserves arguments that contain spaces (e.g. task descriptions).
func RunJarvisArgs(ctx context.Context, env []string, binary string, args []string, stdin io.Reader, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &outData
	cmd.Stderr = &errData
	cmd.Env = commandEnv(env, nolog)

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}

// StartJarvis starts a long running jarvis command (e.g. dev-backend). The
// command is killed when the context ends.
func StartJarvis(ctx context.Context, env []string, binary string, args []string, nolog bool) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = commandEnv(env, nolog)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// commandEnv sets os.Environ() first, then custom env overrides on top.
// In Go's exec.Cmd, when duplicate keys exist, the last one wins.
func commandEnv(env []string, nolog bool) []string {
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "JARVIS_NO_LOG=true")
	}
	return newEnv
}
