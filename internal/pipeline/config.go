// Package pipeline provides pipeline definition loading and validation.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/crossship/crossship/internal/matrix"
	"github.com/crossship/crossship/pkg/xos"
)

const ConfigFileName = "crossship.yml"

// Default lifecycle script paths, relative to the pipeline root.
const (
	DefaultInstallScript      = "ci/install.sh"
	DefaultBuildScript        = "ci/script.sh"
	DefaultBeforeDeployScript = "ci/before_deploy.sh"
)

// Config represents the pipeline definition (crossship.yml).
type Config struct {
	Version string        `yaml:"version"`
	Crate   CrateMetadata `yaml:"crate"`
	Matrix  matrix.Matrix `yaml:"matrix"`
	Scripts ScriptSet     `yaml:"scripts,omitempty"`
	Cache   *CacheConfig  `yaml:"cache,omitempty"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Trigger TriggerConfig `yaml:"trigger,omitempty"`
}

// CrateMetadata names the product being built and released.
type CrateMetadata struct {
	// Name is the artifact name root (e.g. "codedx-client").
	Name string `yaml:"name"`
}

// ScriptSet holds the paths of the external lifecycle scripts. Each script
// is a zero-argument program configured entirely through its environment.
type ScriptSet struct {
	Install      string `yaml:"install,omitempty"`
	Build        string `yaml:"build,omitempty"`
	BeforeDeploy string `yaml:"before_deploy,omitempty"`
}

// CacheConfig configures the shared dependency cache.
type CacheConfig struct {
	// Dir is the cache root, relative to the pipeline root unless absolute.
	Dir string `yaml:"dir"`
}

// DeployConfig configures the release publisher and its gate.
type DeployConfig struct {
	// Endpoint is the base URL of the release endpoint.
	Endpoint string `yaml:"endpoint"`
	// Channel is the single toolchain channel releases publish from.
	// Entries built on any other channel package but never deploy.
	Channel string `yaml:"channel,omitempty"`
	// CredentialEnv names the environment variable holding the upload
	// token. The value itself never appears in the definition file.
	CredentialEnv string `yaml:"credential_env,omitempty"`
	// OutDir is where packaged artifacts are expected, relative to the
	// pipeline root unless absolute.
	OutDir string `yaml:"out_dir,omitempty"`
}

// TriggerConfig is the branch/tag policy that decides whether a run is
// allowed to happen at all.
type TriggerConfig struct {
	// Branch is the primary branch pushes are accepted from.
	Branch string `yaml:"branch,omitempty"`
	// TagPattern is the regexp release tags must match.
	TagPattern string `yaml:"tag_pattern,omitempty"`
}

// DefaultConfig returns a minimal configuration for the given crate name.
func DefaultConfig(crateName string) *Config {
	c := &Config{
		Version: "1",
		Crate:   CrateMetadata{Name: crateName},
	}
	c.applyDefaults()
	return c
}

// LoadConfig loads the pipeline definition from the given directory.
func LoadConfig(dir string) (*Config, error) {
	return LoadConfigFrom(filepath.Join(dir, ConfigFileName))
}

// LoadConfigFrom loads the pipeline definition from the specified file.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline definition: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline definition: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults fills unset optional fields with their conventional values.
func (c *Config) applyDefaults() {
	if c.Scripts.Install == "" {
		c.Scripts.Install = DefaultInstallScript
	}
	if c.Scripts.Build == "" {
		c.Scripts.Build = DefaultBuildScript
	}
	if c.Scripts.BeforeDeploy == "" {
		c.Scripts.BeforeDeploy = DefaultBeforeDeployScript
	}
	if c.Deploy.Channel == "" {
		c.Deploy.Channel = "stable"
	}
	if c.Deploy.CredentialEnv == "" {
		c.Deploy.CredentialEnv = "CROSSSHIP_TOKEN"
	}
	if c.Deploy.OutDir == "" {
		c.Deploy.OutDir = "dist"
	}
	if c.Trigger.Branch == "" {
		c.Trigger.Branch = "master"
	}
	if c.Trigger.TagPattern == "" {
		c.Trigger.TagPattern = `^v\d+\.\d+\.\d+.*$`
	}
}

// Save writes the definition back to the given directory atomically.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline definition: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if err := xos.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write pipeline definition: %w", err)
	}
	return nil
}

// ScriptPath resolves a script path against the pipeline root.
func ScriptPath(root, script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(root, script)
}
