package pipeline

import (
	"fmt"
	"regexp"
)

var (
	// namePattern matches valid kebab-case crate names.
	namePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
)

// Validator validates pipeline definitions beyond what the JSON Schema can
// express: cross-field rules and values that must parse.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire definition.
func (v *Validator) Validate(config *Config) error {
	if err := v.validateCrate(&config.Crate); err != nil {
		return fmt.Errorf("crate validation failed: %w", err)
	}

	if err := config.Matrix.Validate(); err != nil {
		return fmt.Errorf("matrix validation failed: %w", err)
	}

	if err := v.validateDeploy(&config.Deploy); err != nil {
		return fmt.Errorf("deploy validation failed: %w", err)
	}

	if err := v.validateTrigger(&config.Trigger); err != nil {
		return fmt.Errorf("trigger validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateCrate(crate *CrateMetadata) error {
	if crate.Name == "" {
		return fmt.Errorf("crate name is required")
	}
	if err := ValidateName(crate.Name); err != nil {
		return fmt.Errorf("invalid crate name: %w", err)
	}
	return nil
}

func (v *Validator) validateDeploy(deploy *DeployConfig) error {
	if deploy.Endpoint == "" {
		return fmt.Errorf("deploy endpoint is required")
	}
	if deploy.Channel == "" {
		return fmt.Errorf("deploy channel is required")
	}
	if deploy.CredentialEnv == "" {
		return fmt.Errorf("deploy credential_env is required")
	}
	return nil
}

func (v *Validator) validateTrigger(trigger *TriggerConfig) error {
	if trigger.Branch == "" {
		return fmt.Errorf("trigger branch is required")
	}
	if _, err := regexp.Compile(trigger.TagPattern); err != nil {
		return fmt.Errorf("invalid tag pattern: %w", err)
	}
	return nil
}

// ValidateName validates a crate name follows kebab-case convention.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must be kebab-case (lowercase letters, numbers, and hyphens only, starting with a letter)")
	}
	return nil
}
