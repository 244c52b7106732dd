package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/crossship/crossship/internal/pipeline"
	"github.com/crossship/crossship/internal/publish"
)

var (
	publishTag     string
	publishChannel string
	publishCI      bool
	publishYes     bool
)

var publishCmd = &cobra.Command{
	Use:   "publish [target...]",
	Short: "Upload packaged artifacts to the release endpoint",
	Long: `Upload every packaged artifact for the given matrix entries to the
release identified by the tag. The deploy gate (stable channel, tag ref)
is checked first; a closed gate is a no-op, not a failure.

Examples:
  crossship publish --tag v1.2.0
  crossship publish --tag v1.2.0 --yes x86_64-unknown-linux-musl`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&publishTag, "tag", "", "Release tag (default: TRAVIS_TAG)")
	publishCmd.Flags().StringVar(&publishChannel, "channel", "", "Toolchain channel (default: TRAVIS_RUST_VERSION or stable)")
	publishCmd.Flags().BoolVar(&publishCI, "ci", false, "CI mode (no progress bars, no prompts)")
	publishCmd.Flags().BoolVarP(&publishYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root, config, err := loadPipeline()
	if err != nil {
		return err
	}

	rc := pipeline.ResolveRunContext(publishTag, "", publishChannel)
	gate := publish.NewGate(config.Deploy)
	if reason := gate.Explain(rc); reason != "" {
		fmt.Printf("🔒 Deploy gate closed: %s. Nothing to publish.\n", reason)
		return nil
	}

	entries, err := config.Matrix.Filter(args)
	if err != nil {
		return err
	}

	if !publishYes && !publishCI {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Publish %s %s (%d entries) to %s", config.Crate.Name, rc.Tag, len(entries), config.Deploy.Endpoint),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cred, err := publish.ResolveCredential(config.Deploy.CredentialEnv)
	if err != nil {
		return err
	}

	packager := newPackager(root, config)
	publisher := publish.NewPublisher(config.Deploy.Endpoint, !publishCI)

	for _, entry := range entries.Expand() {
		art := packager.Describe(entry, rc.Tag, config.Crate.Name)
		if err := publisher.Publish(ctx, art, cred); err != nil {
			return fmt.Errorf("❌ Publish failed for %s: %w", entry.Label(), err)
		}
		fmt.Printf("✅ Published %s\n", entry.Label())
	}

	return nil
}
