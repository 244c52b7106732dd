package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crossship/crossship/internal/artifact"
	"github.com/crossship/crossship/internal/pipeline"
	"github.com/crossship/crossship/internal/publish"
)

var planTag string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the expanded target matrix and expected artifacts",
	Long: `Expand the matrix from crossship.yml and print, per entry, the
artifact name the packaging stage will produce and whether the deploy
gate would hold for the current context.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planTag, "tag", "", "Release tag to plan for (default: TRAVIS_TAG)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	_, config, err := loadPipeline()
	if err != nil {
		return err
	}

	rc := pipeline.ResolveRunContext(planTag, "", "")
	gate := publish.NewGate(config.Deploy)

	tag := rc.Tag
	if tag == "" {
		tag = "vX.Y.Z"
	}

	fmt.Printf("📋 %s: %d matrix entries\n\n", config.Crate.Name, len(config.Matrix))
	for _, entry := range config.Matrix.Expand() {
		name := artifact.Name(config.Crate.Name, tag, entry.Label())
		notes := ""
		if entry.TestsDisabled {
			notes = " (tests disabled)"
		}
		fmt.Printf("  %-40s %s  →  %s.tar.gz%s\n", entry.TargetTriple, entry.OS, name, notes)
	}

	fmt.Println()
	if reason := gate.Explain(rc); reason != "" {
		fmt.Printf("🔒 Deploy gate closed: %s\n", reason)
	} else {
		fmt.Printf("🔓 Deploy gate open for tag %s on channel %s\n", rc.Tag, rc.Channel)
	}
	return nil
}
