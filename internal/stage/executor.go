package stage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

// ScriptRunner executes one external lifecycle script. Scripts take no
// arguments and are configured entirely through their environment.
type ScriptRunner interface {
	// Run executes the script at path with the given extra environment.
	// A missing script returns an error satisfying os.IsNotExist so the
	// caller can decide whether a built-in fallback applies.
	Run(ctx context.Context, path string, env map[string]string) error
}

// ScriptExecutor runs lifecycle scripts through the shell, inheriting the
// process environment plus the per-entry variables.
type ScriptExecutor struct {
	workDir string
	verbose bool
}

// NewScriptExecutor creates an executor running scripts from workDir.
func NewScriptExecutor(workDir string, verbose bool) *ScriptExecutor {
	return &ScriptExecutor{workDir: workDir, verbose: verbose}
}

// Run implements ScriptRunner.
func (e *ScriptExecutor) Run(ctx context.Context, path string, env map[string]string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "bash", path)
	cmd.Dir = e.workDir
	cmd.Env = append(os.Environ(), sortedEnv(env)...)
	if e.verbose {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("script %s failed: %w", path, err)
	}
	return nil
}

// sortedEnv renders the extra environment as KEY=value pairs in a stable
// order, so verbose output and tests are deterministic.
func sortedEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
