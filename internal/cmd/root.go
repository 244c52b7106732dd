package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crossship",
	Short: "Crossship - multi-target release build & publishing pipeline",
	Long: `Crossship runs a multi-target release pipeline from a crossship.yml
definition: it expands a target matrix, runs the install, script and
before_deploy stages for every entry, and uploads the packaged artifacts
to a release endpoint when the deploy gate holds.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}
