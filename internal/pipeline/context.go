package pipeline

import (
	"os"
	"regexp"
)

// RunContext is the trigger context of one pipeline run: which ref started
// it and which toolchain channel the build environment provides. It is
// resolved once at startup and read-only afterwards.
type RunContext struct {
	// Tag is the release tag when the triggering ref is a tag, empty for
	// branch commits.
	Tag string
	// Branch is the triggering branch for branch commits.
	Branch string
	// Channel is the toolchain channel the run builds with.
	Channel string
}

// IsTag reports whether the triggering ref is a tag.
func (rc RunContext) IsTag() bool {
	return rc.Tag != ""
}

// Ref returns the triggering ref for display purposes.
func (rc RunContext) Ref() string {
	if rc.IsTag() {
		return rc.Tag
	}
	return rc.Branch
}

// ResolveRunContext builds a RunContext with flag-over-environment
// precedence: explicit CLI values win, otherwise the hosting CI
// environment is consulted (Travis-compatible variable names).
func ResolveRunContext(tag, branch, channel string) RunContext {
	if tag == "" {
		tag = os.Getenv("TRAVIS_TAG")
	}
	if branch == "" {
		branch = os.Getenv("TRAVIS_BRANCH")
	}
	if channel == "" {
		channel = os.Getenv("TRAVIS_RUST_VERSION")
	}
	if channel == "" {
		channel = "stable"
	}
	return RunContext{Tag: tag, Branch: branch, Channel: channel}
}

// Allows reports whether the trigger policy admits this run: a push to the
// primary branch, or a tag matching the release pattern.
func (t TriggerConfig) Allows(rc RunContext) bool {
	if rc.IsTag() {
		matched, err := regexp.MatchString(t.TagPattern, rc.Tag)
		return err == nil && matched
	}
	return rc.Branch == t.Branch
}
