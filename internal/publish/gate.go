// Package publish uploads packaged release artifacts to a release
// endpoint, gated by the branch/tag and toolchain channel policy.
package publish

import (
	"fmt"

	"github.com/crossship/crossship/internal/pipeline"
)

// Gate is the predicate that must hold before any upload is attempted.
// It is evaluated once per run and read-only afterwards.
type Gate struct {
	// ChannelRequired is the single toolchain channel releases publish
	// from. Entries tested on other channels package but never deploy,
	// so each release uploads exactly once.
	ChannelRequired string
	// TagRequired requires the triggering ref to be a tag.
	TagRequired bool
}

// NewGate builds the standard release gate for a deploy configuration.
func NewGate(deploy pipeline.DeployConfig) Gate {
	return Gate{ChannelRequired: deploy.Channel, TagRequired: true}
}

// Allows reports whether the run context satisfies the gate.
func (g Gate) Allows(rc pipeline.RunContext) bool {
	if g.ChannelRequired != "" && rc.Channel != g.ChannelRequired {
		return false
	}
	if g.TagRequired && !rc.IsTag() {
		return false
	}
	return true
}

// Explain returns a human-readable reason why the gate does not hold, or
// an empty string when it does. Used for status output; a closed gate is
// a designed no-op, not an error.
func (g Gate) Explain(rc pipeline.RunContext) string {
	if g.ChannelRequired != "" && rc.Channel != g.ChannelRequired {
		return fmt.Sprintf("channel is %q, releases publish from %q only", rc.Channel, g.ChannelRequired)
	}
	if g.TagRequired && !rc.IsTag() {
		return "ref is not a tag"
	}
	return ""
}
