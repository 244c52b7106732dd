package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crossship/crossship/internal/daemon"
	"github.com/crossship/crossship/internal/pipeline"
	"github.com/crossship/crossship/internal/report"
	"github.com/crossship/crossship/internal/stage"
)

var (
	watchJobs    int
	watchVerbose bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the build stages whenever the pipeline changes",
	Long: `Watch crossship.yml and the ci/ lifecycle scripts and re-run the
install, script and before_deploy stages on every change. Watch runs
never deploy.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVarP(&watchJobs, "jobs", "j", 2, "Number of parallel matrix entries")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Show script output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root, config, err := loadPipeline()
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context) error {
		rc := pipeline.ResolveRunContext("", "", "")
		runner := &stage.Runner{
			Root:     root,
			Config:   config,
			Context:  rc,
			Scripts:  stage.NewScriptExecutor(root, watchVerbose),
			Packager: newPackager(root, config),
			Cache:    newCache(root, config),
			Verbose:  watchVerbose,
			// DeployEnabled stays false: watch runs never publish.
		}

		results := runner.Run(ctx, config.Matrix.Expand(), watchJobs)
		rep := report.New(results)
		rep.Print(os.Stdout)
		if rep.Failed() {
			return fmt.Errorf("run failed")
		}
		return nil
	}

	d := daemon.New(daemon.DefaultConfig(root), runOnce)
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watch daemon: %w", err)
	}
	defer d.Stop()

	fmt.Printf("👀 Watching %s (status socket: %s). Ctrl-C to stop.\n", root, d.SocketPath())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Println("\n👋 Stopping watch daemon...")
	return nil
}
