package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crossship/crossship/internal/artifact"
	"github.com/crossship/crossship/internal/cache"
	"github.com/crossship/crossship/internal/pipeline"
)

// findPipelineRoot walks up from the working directory until it finds a
// crossship.yml.
func findPipelineRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, pipeline.ConfigFileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not a crossship pipeline (no %s found)", pipeline.ConfigFileName)
}

// loadPipeline locates the root and loads a validated definition.
func loadPipeline() (string, *pipeline.Config, error) {
	root, err := findPipelineRoot()
	if err != nil {
		return "", nil, err
	}

	config, err := pipeline.LoadConfig(root)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load pipeline definition: %w", err)
	}

	if err := pipeline.NewValidator().Validate(config); err != nil {
		return "", nil, err
	}

	return root, config, nil
}

// newPackager builds the artifact packager for a pipeline root.
func newPackager(root string, config *pipeline.Config) *artifact.Packager {
	outDir := config.Deploy.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}
	return artifact.NewPackager(outDir)
}

// newCache builds the dependency cache, or nil when caching is not
// configured.
func newCache(root string, config *pipeline.Config) *cache.Cache {
	if config.Cache == nil || config.Cache.Dir == "" {
		return nil
	}
	dir := config.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return cache.New(dir)
}
