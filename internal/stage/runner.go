// Package stage drives the per-entry stage sequence of a release
// pipeline run: install, script, before_deploy, deploy, plus an
// unconditional cleanup.
package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/crossship/crossship/internal/artifact"
	"github.com/crossship/crossship/internal/cache"
	"github.com/crossship/crossship/internal/matrix"
	"github.com/crossship/crossship/internal/pipeline"
	"github.com/crossship/crossship/internal/publish"
)

// Stage identifies one phase of an entry's lifecycle.
type Stage string

const (
	StageInstall      Stage = "install"
	StageScript       Stage = "script"
	StageBeforeDeploy Stage = "before_deploy"
	StageDeploy       Stage = "deploy"
	StageCleanup      Stage = "cleanup"
)

// State is the position of one entry in its lifecycle state machine.
type State string

const (
	StateInit      State = "INIT"
	StateInstalled State = "INSTALLED"
	StateBuilt     State = "BUILT"
	StatePackaged  State = "PACKAGED"
	StateDeployed  State = "DEPLOYED"
	StateFailed    State = "FAILED"
)

// IsTerminal reports whether the state ends an entry's run.
// PACKAGED is terminal when the deploy gate does not hold.
func IsTerminal(s State) bool {
	switch s {
	case StatePackaged, StateDeployed, StateFailed:
		return true
	default:
		return false
	}
}

// allowedTransition encodes the entry state machine:
// INIT -> INSTALLED -> BUILT -> PACKAGED -> DEPLOYED, any non-terminal
// state may fail.
func allowedTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateDeployed && from != StateFailed
	}
	switch from {
	case StateInit:
		return to == StateInstalled
	case StateInstalled:
		return to == StateBuilt
	case StateBuilt:
		return to == StatePackaged
	case StatePackaged:
		return to == StateDeployed
	default:
		return false
	}
}

// Transition validates and applies a state change for an entry.
func Transition(current State, to State) (State, error) {
	if !allowedTransition(current, to) {
		return current, fmt.Errorf("disallowed transition: %s -> %s", current, to)
	}
	return to, nil
}

// StageResult records the outcome of a single stage for one entry.
type StageResult struct {
	Stage      Stage
	ExitStatus int
	Err        error
}

// EntryResult is the terminal outcome of one matrix entry.
type EntryResult struct {
	Entry  matrix.Entry
	State  State
	Stages []StageResult
	// Err is the failure that aborted the entry, nil on success.
	Err error
	// CleanupErr is captured from the cleanup stage and never escalated.
	CleanupErr error
	// GateReason explains a skipped deploy; empty when the entry
	// deployed or failed earlier.
	GateReason string
	// Artifact describes the entry's packaged output once it exists.
	Artifact *artifact.Artifact
}

// Failed reports whether the entry ended in FAILED.
func (r *EntryResult) Failed() bool {
	return r.State == StateFailed
}

// ReleasePublisher is the slice of the publisher the runner needs.
type ReleasePublisher interface {
	Publish(ctx context.Context, art artifact.Artifact, cred publish.Credential) error
}

// Runner executes the stage sequence for matrix entries. Entries are
// independent: a failure aborts only its own entry and every entry always
// gets its cleanup stage.
type Runner struct {
	// Root is the pipeline root directory.
	Root string
	// Config is the loaded pipeline definition.
	Config *pipeline.Config
	// Context is the run's trigger context, resolved once.
	Context pipeline.RunContext
	// Scripts runs the external lifecycle scripts.
	Scripts ScriptRunner
	// Packager provides artifact naming and the built-in packaging
	// fallback when no before_deploy script exists.
	Packager *artifact.Packager
	// Publisher uploads artifacts; unused when the gate is closed.
	Publisher ReleasePublisher
	// Credential is resolved by the caller only when a deploy can
	// actually happen.
	Credential publish.Credential
	// Cache is the dependency cache, nil to disable.
	Cache *cache.Cache
	// Gate is the deploy gate, evaluated once per run.
	Gate publish.Gate
	// DeployEnabled is false for local and watch runs, which never
	// publish regardless of the gate.
	DeployEnabled bool
	// Verbose forwards script stdout to the terminal.
	Verbose bool
}

// Run executes every entry, fanning out up to jobs parallel workers.
// Results are returned in entry order.
func (r *Runner) Run(ctx context.Context, entries []matrix.Entry, jobs int) []*EntryResult {
	if jobs < 1 {
		jobs = 1
	}

	// The gate is evaluated exactly once, before any entry deploys.
	gateOpen := r.DeployEnabled && r.Gate.Allows(r.Context)

	results := make([]*EntryResult, len(entries))
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry matrix.Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.runEntry(ctx, entry, gateOpen)
		}(i, entry)
	}
	wg.Wait()

	return results
}

// RunEntry executes a single entry's full stage sequence.
func (r *Runner) RunEntry(ctx context.Context, entry matrix.Entry) *EntryResult {
	gateOpen := r.DeployEnabled && r.Gate.Allows(r.Context)
	return r.runEntry(ctx, entry, gateOpen)
}

func (r *Runner) runEntry(ctx context.Context, entry matrix.Entry, gateOpen bool) *EntryResult {
	result := &EntryResult{Entry: entry, State: StateInit}
	defer r.cleanup(entry, result)

	env := r.entryEnv(entry)

	// install
	if err := r.runScript(ctx, result, StageInstall, r.Config.Scripts.Install, env); err != nil {
		r.fail(result, &SetupError{Target: entry.TargetTriple, Err: err})
		return result
	}
	result.State = StateInstalled

	// script (compile, and test unless disabled)
	if err := r.runScript(ctx, result, StageScript, r.Config.Scripts.Build, env); err != nil {
		r.fail(result, &BuildError{Target: entry.TargetTriple, Err: err})
		return result
	}
	result.State = StateBuilt

	// before_deploy (package)
	art, err := r.packageEntry(ctx, result, entry, env)
	if err != nil {
		r.fail(result, &PackageError{Target: entry.TargetTriple, Err: err})
		return result
	}
	result.State = StatePackaged
	result.Artifact = &art

	// deploy, only through an open gate. A closed gate is success.
	if !gateOpen {
		if !r.DeployEnabled {
			result.GateReason = "deploy disabled for this run"
		} else {
			result.GateReason = r.Gate.Explain(r.Context)
		}
		return result
	}

	if err := r.Publisher.Publish(ctx, art, r.Credential); err != nil {
		result.Stages = append(result.Stages, StageResult{Stage: StageDeploy, ExitStatus: 1, Err: err})
		r.fail(result, err)
		return result
	}
	result.Stages = append(result.Stages, StageResult{Stage: StageDeploy})
	result.State = StateDeployed
	return result
}

// PackageOnly runs just the packaging stage for an already-built entry.
func (r *Runner) PackageOnly(ctx context.Context, entry matrix.Entry) (artifact.Artifact, error) {
	result := &EntryResult{Entry: entry, State: StateBuilt}
	art, err := r.packageEntry(ctx, result, entry, r.entryEnv(entry))
	if err != nil {
		return artifact.Artifact{}, &PackageError{Target: entry.TargetTriple, Err: err}
	}
	return art, nil
}

// runScript executes one lifecycle script and records its result.
func (r *Runner) runScript(ctx context.Context, result *EntryResult, stage Stage, script string, env map[string]string) error {
	err := r.Scripts.Run(ctx, pipeline.ScriptPath(r.Root, script), env)
	result.Stages = append(result.Stages, StageResult{Stage: stage, ExitStatus: exitStatus(err), Err: err})
	return err
}

// packageEntry runs the before_deploy script, or falls back to built-in
// packaging when the pipeline ships no packaging script.
func (r *Runner) packageEntry(ctx context.Context, result *EntryResult, entry matrix.Entry, env map[string]string) (artifact.Artifact, error) {
	script := pipeline.ScriptPath(r.Root, r.Config.Scripts.BeforeDeploy)
	err := r.Scripts.Run(ctx, script, env)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		// Built-in fallback: archive the entry's build output directly.
		staging := filepath.Join(r.Root, "build", entry.TargetTriple)
		art, perr := r.Packager.Package(entry, r.Context.Tag, r.Config.Crate.Name, staging)
		result.Stages = append(result.Stages, StageResult{Stage: StageBeforeDeploy, ExitStatus: exitStatus(perr), Err: perr})
		return art, perr
	}
	result.Stages = append(result.Stages, StageResult{Stage: StageBeforeDeploy, ExitStatus: exitStatus(err), Err: err})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return r.Packager.Describe(entry, r.Context.Tag, r.Config.Crate.Name), nil
}

// cleanup always runs after the entry reaches a terminal state. Its own
// failure is captured and reported at a diagnostic level, never escalated,
// so it cannot mask the true failure cause.
func (r *Runner) cleanup(entry matrix.Entry, result *EntryResult) {
	if r.Cache == nil {
		result.Stages = append(result.Stages, StageResult{Stage: StageCleanup})
		return
	}

	err := r.Cache.RepairPermissions(entry)
	if err == nil {
		err = r.Cache.Stamp(entry, r.Context.Channel)
	}
	result.CleanupErr = err
	result.Stages = append(result.Stages, StageResult{Stage: StageCleanup, ExitStatus: exitStatus(err), Err: err})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  cleanup failed for %s (ignored): %v\n", entry.TargetTriple, err)
	}
}

// fail moves the entry to FAILED and records the first escalated error.
func (r *Runner) fail(result *EntryResult, err error) {
	result.State = StateFailed
	result.Err = err
}

// entryEnv builds the environment the lifecycle scripts read the entry's
// configuration from. The Travis-era names are kept so existing ci/
// scripts keep working unmodified.
func (r *Runner) entryEnv(entry matrix.Entry) map[string]string {
	env := map[string]string{
		"TARGET":     entry.TargetTriple,
		"CRATE_NAME": r.Config.Crate.Name,
	}
	if entry.NiceName != "" {
		env["TARGET_NICE"] = entry.NiceName
	}
	if entry.TestsDisabled {
		env["DISABLE_TESTS"] = "1"
	}
	if r.Context.Tag != "" {
		env["TRAVIS_TAG"] = r.Context.Tag
	}
	if r.Context.Channel != "" {
		env["TRAVIS_RUST_VERSION"] = r.Context.Channel
	}
	if r.Cache != nil {
		env["CROSSSHIP_CACHE_DIR"] = r.Cache.EntryDir(entry)
	}
	return env
}

// exitStatus maps an error to a process exit status: 0 for success, the
// script's own status when it exited, 1 otherwise.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
