package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDefinition = `version: "1"
crate:
  name: codedx-client
matrix:
  - target: x86_64-unknown-linux-musl
    nice_name: linux_x86_64
  - target: x86_64-apple-darwin
    nice_name: mac_x86_64
  - target: x86_64-unknown-netbsd
    disable_tests: true
deploy:
  endpoint: https://releases.example.com/api
`

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write definition: %v", err)
	}
	return dir
}

func TestLoadConfig_ParsesAndAppliesDefaults(t *testing.T) {
	dir := writeDefinition(t, sampleDefinition)

	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Crate.Name != "codedx-client" {
		t.Errorf("crate name = %q", config.Crate.Name)
	}
	if len(config.Matrix) != 3 {
		t.Fatalf("expected 3 matrix entries, got %d", len(config.Matrix))
	}
	if !config.Matrix[2].TestsDisabled {
		t.Error("expected netbsd entry to have tests disabled")
	}

	// Defaults.
	if config.Scripts.Install != DefaultInstallScript {
		t.Errorf("install script default = %q", config.Scripts.Install)
	}
	if config.Deploy.Channel != "stable" {
		t.Errorf("channel default = %q", config.Deploy.Channel)
	}
	if config.Deploy.CredentialEnv != "CROSSSHIP_TOKEN" {
		t.Errorf("credential env default = %q", config.Deploy.CredentialEnv)
	}
	if config.Trigger.Branch != "master" {
		t.Errorf("trigger branch default = %q", config.Trigger.Branch)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for missing definition")
	}
}

func TestValidator_Validate(t *testing.T) {
	dir := writeDefinition(t, sampleDefinition)
	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v := NewValidator()
	if err := v.Validate(config); err != nil {
		t.Fatalf("expected valid definition, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty crate name", func(c *Config) { c.Crate.Name = "" }},
		{"non-kebab crate name", func(c *Config) { c.Crate.Name = "Not_Kebab" }},
		{"duplicate triple", func(c *Config) { c.Matrix = append(c.Matrix, c.Matrix[0]) }},
		{"missing endpoint", func(c *Config) { c.Deploy.Endpoint = "" }},
		{"bad tag pattern", func(c *Config) { c.Trigger.TagPattern = "[" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.mutate(config)
			if err := v.Validate(config); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := writeDefinition(t, sampleDefinition)
	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := t.TempDir()
	if err := config.Save(out); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadConfig(out)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Crate.Name != config.Crate.Name {
		t.Errorf("crate name changed across save/load: %q", loaded.Crate.Name)
	}
	if len(loaded.Matrix) != len(config.Matrix) {
		t.Errorf("matrix length changed across save/load: %d", len(loaded.Matrix))
	}
}
