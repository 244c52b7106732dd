package publish

import (
	"testing"

	"github.com/crossship/crossship/internal/pipeline"
)

func TestGate_Allows(t *testing.T) {
	gate := Gate{ChannelRequired: "stable", TagRequired: true}

	tests := []struct {
		name string
		rc   pipeline.RunContext
		want bool
	}{
		{"stable and tag", pipeline.RunContext{Tag: "v1.2.0", Channel: "stable"}, true},
		{"stable but branch commit", pipeline.RunContext{Branch: "master", Channel: "stable"}, false},
		{"tag but nightly channel", pipeline.RunContext{Tag: "v1.2.0", Channel: "nightly"}, false},
		{"tag but beta channel", pipeline.RunContext{Tag: "v1.2.0", Channel: "beta"}, false},
		{"neither", pipeline.RunContext{Branch: "dev", Channel: "nightly"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Allows(tt.rc); got != tt.want {
				t.Errorf("Allows(%+v) = %v, want %v", tt.rc, got, tt.want)
			}
		})
	}
}

func TestGate_Explain(t *testing.T) {
	gate := NewGate(pipeline.DeployConfig{Channel: "stable"})

	if reason := gate.Explain(pipeline.RunContext{Tag: "v1.2.0", Channel: "stable"}); reason != "" {
		t.Errorf("open gate should have no reason, got %q", reason)
	}
	if reason := gate.Explain(pipeline.RunContext{Tag: "v1.2.0", Channel: "nightly"}); reason == "" {
		t.Error("expected channel reason")
	}
	if reason := gate.Explain(pipeline.RunContext{Branch: "master", Channel: "stable"}); reason == "" {
		t.Error("expected tag reason")
	}
}
