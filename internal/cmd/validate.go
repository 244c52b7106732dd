package cmd

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/crossship/crossship/internal/pipeline"
)

//go:embed schemas/crossship-pipeline.v1.schema.json
var schemaFS embed.FS

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the crossship.yml pipeline definition",
	Long: `Validates crossship.yml against the pipeline JSON Schema and then
runs the semantic checks the schema cannot express (duplicate targets,
tag pattern compilation, gate configuration).`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, err := findPipelineRoot()
	if err != nil {
		return err
	}
	configPath := filepath.Join(root, pipeline.ConfigFileName)

	fmt.Printf("🔍 Validating %s...\n", pipeline.ConfigFileName)

	schemaBytes, err := schemaFS.ReadFile("schemas/crossship-pipeline.v1.schema.json")
	if err != nil {
		return fmt.Errorf("failed to load JSON schema: %w", err)
	}
	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)

	// gojsonschema speaks JSON; decode the YAML into plain Go values and
	// validate those.
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", pipeline.ConfigFileName, err)
	}

	var document interface{}
	if err := yaml.Unmarshal(configBytes, &document); err != nil {
		return fmt.Errorf("failed to parse %s: %w", pipeline.ConfigFileName, err)
	}
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		fmt.Println("\n❌ Validation failed with the following errors:")
		fmt.Println()
		for i, desc := range result.Errors() {
			fmt.Printf("%d. %s\n", i+1, desc.String())
			fmt.Printf("   Field: %s\n", desc.Field())
			fmt.Printf("   Type: %s\n\n", desc.Type())
		}
		return fmt.Errorf("validation failed with %d errors", len(result.Errors()))
	}

	// Semantic validation beyond the schema.
	config, err := pipeline.LoadConfigFrom(configPath)
	if err != nil {
		return err
	}
	if err := pipeline.NewValidator().Validate(config); err != nil {
		return fmt.Errorf("❌ %w", err)
	}

	fmt.Printf("✅ %s is valid!\n", pipeline.ConfigFileName)
	return nil
}
