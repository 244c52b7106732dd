package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crossship/crossship/internal/pipeline"
	"github.com/crossship/crossship/internal/publish"
	"github.com/crossship/crossship/internal/report"
	"github.com/crossship/crossship/internal/stage"
)

var (
	runTag      string
	runBranch   string
	runChannel  string
	runJobs     int
	runVerbose  bool
	runCI       bool
	runNoDeploy bool
	runForce    bool
)

var runCmd = &cobra.Command{
	Use:   "run [target...]",
	Short: "Run the release pipeline for the target matrix",
	Long: `Run the full pipeline: every matrix entry goes through install,
script and before_deploy, and deploys when the gate holds (stable channel
and a tag ref). Entries run independently; one failure never aborts its
siblings.

Examples:
  crossship run                               # All entries, context from CI env
  crossship run x86_64-unknown-linux-musl     # One entry
  crossship run --tag v1.2.0 --channel stable # Explicit release context
  crossship run --no-deploy                   # Build and package only
  crossship run --jobs 4                      # Four parallel entries`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runTag, "tag", "", "Release tag (default: TRAVIS_TAG)")
	runCmd.Flags().StringVar(&runBranch, "branch", "", "Triggering branch (default: TRAVIS_BRANCH)")
	runCmd.Flags().StringVar(&runChannel, "channel", "", "Toolchain channel (default: TRAVIS_RUST_VERSION or stable)")
	runCmd.Flags().IntVarP(&runJobs, "jobs", "j", 2, "Number of parallel matrix entries")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Show script output")
	runCmd.Flags().BoolVar(&runCI, "ci", false, "CI mode (no progress bars)")
	runCmd.Flags().BoolVar(&runNoDeploy, "no-deploy", false, "Never publish, regardless of the gate")
	runCmd.Flags().BoolVar(&runForce, "force", false, "Run even when the trigger policy rejects the ref")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root, config, err := loadPipeline()
	if err != nil {
		return err
	}

	rc := pipeline.ResolveRunContext(runTag, runBranch, runChannel)
	if !config.Trigger.Allows(rc) {
		if !runForce {
			fmt.Printf("⏭️  Ref %q is outside the trigger policy, nothing to do\n", rc.Ref())
			return nil
		}
		fmt.Printf("⚠️  Ref %q is outside the trigger policy, running anyway (--force)\n", rc.Ref())
	}

	entries, err := config.Matrix.Filter(args)
	if err != nil {
		return err
	}

	gate := publish.NewGate(config.Deploy)
	deployEnabled := !runNoDeploy

	// The credential is resolved once, and only when a deploy can
	// actually happen.
	var cred publish.Credential
	if deployEnabled && gate.Allows(rc) {
		cred, err = publish.ResolveCredential(config.Deploy.CredentialEnv)
		if err != nil {
			return fmt.Errorf("deploy gate holds but no credential available: %w", err)
		}
	}

	runner := &stage.Runner{
		Root:          root,
		Config:        config,
		Context:       rc,
		Scripts:       stage.NewScriptExecutor(root, runVerbose),
		Packager:      newPackager(root, config),
		Publisher:     publish.NewPublisher(config.Deploy.Endpoint, !runCI),
		Credential:    cred,
		Cache:         newCache(root, config),
		Gate:          gate,
		DeployEnabled: deployEnabled,
		Verbose:       runVerbose,
	}

	expanded := entries.Expand()

	if runner.Cache != nil {
		for _, entry := range expanded {
			if err := runner.Cache.Prepare(entry); err != nil {
				return err
			}
		}
	}

	fmt.Printf("🚀 Running pipeline for %s (%d entries, ref %s, channel %s)\n",
		config.Crate.Name, len(expanded), rc.Ref(), rc.Channel)

	results := runner.Run(ctx, expanded, runJobs)

	rep := report.New(results)
	fmt.Println()
	rep.Print(os.Stdout)

	if rep.Failed() {
		return fmt.Errorf("pipeline run failed")
	}
	return nil
}
