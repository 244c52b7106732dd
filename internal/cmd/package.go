package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crossship/crossship/internal/pipeline"
	"github.com/crossship/crossship/internal/stage"
)

var (
	packageTag     string
	packageVerbose bool
)

var packageCmd = &cobra.Command{
	Use:   "package [target...]",
	Short: "Run the packaging stage only",
	Long: `Run the before_deploy stage for matrix entries that were already
built, producing the release archives and their digest manifest without
touching install, script or deploy.

Examples:
  crossship package --tag v1.2.0
  crossship package --tag v1.2.0 x86_64-unknown-linux-musl`,
	RunE: runPackage,
}

func init() {
	rootCmd.AddCommand(packageCmd)
	packageCmd.Flags().StringVar(&packageTag, "tag", "", "Release tag (default: TRAVIS_TAG)")
	packageCmd.Flags().BoolVarP(&packageVerbose, "verbose", "v", false, "Show script output")
}

func runPackage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root, config, err := loadPipeline()
	if err != nil {
		return err
	}

	rc := pipeline.ResolveRunContext(packageTag, "", "")
	if rc.Tag == "" {
		return fmt.Errorf("a release tag is required for packaging (--tag or TRAVIS_TAG)")
	}

	entries, err := config.Matrix.Filter(args)
	if err != nil {
		return err
	}

	runner := &stage.Runner{
		Root:     root,
		Config:   config,
		Context:  rc,
		Scripts:  stage.NewScriptExecutor(root, packageVerbose),
		Packager: newPackager(root, config),
		Cache:    newCache(root, config),
		Verbose:  packageVerbose,
	}

	failed := 0
	for _, entry := range entries.Expand() {
		art, err := runner.PackageOnly(ctx, entry)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", entry.Label(), err)
			failed++
			continue
		}
		files, err := art.Expand()
		if err != nil {
			return err
		}
		fmt.Printf("📦 %s: %d archive(s) matching %s\n", entry.Label(), len(files), art.PathPattern)
	}

	if failed > 0 {
		return fmt.Errorf("packaging failed for %d entries", failed)
	}
	return nil
}
