package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/crossship/crossship/internal/matrix"
	"github.com/crossship/crossship/internal/stage"
)

func entry(triple string) matrix.Entry {
	return matrix.Entry{TargetTriple: triple}
}

func TestRunReport_FailedIffAnyEntryFailed(t *testing.T) {
	allGood := New([]*stage.EntryResult{
		{Entry: entry("a"), State: stage.StatePackaged},
		{Entry: entry("b"), State: stage.StateDeployed},
	})
	if allGood.Failed() {
		t.Fatal("run with no failed entries must succeed")
	}

	oneBad := New([]*stage.EntryResult{
		{Entry: entry("a"), State: stage.StatePackaged},
		{Entry: entry("b"), State: stage.StateFailed, Err: errors.New("exit status 1")},
	})
	if !oneBad.Failed() {
		t.Fatal("run with a failed entry must fail")
	}
}

func TestRunReport_ZeroDeploysIsStillSuccess(t *testing.T) {
	rep := New([]*stage.EntryResult{
		{Entry: entry("a"), State: stage.StatePackaged, GateReason: "ref is not a tag"},
		{Entry: entry("b"), State: stage.StatePackaged, GateReason: "ref is not a tag"},
	})

	if rep.Failed() {
		t.Fatal("gate no-op run must be a success")
	}
	if rep.Deployed() != 0 {
		t.Fatalf("Deployed() = %d, want 0", rep.Deployed())
	}
}

func TestRunReport_PrintIncludesGateReasonAndCleanupWarning(t *testing.T) {
	rep := New([]*stage.EntryResult{
		{
			Entry:      entry("x86_64-unknown-netbsd"),
			State:      stage.StatePackaged,
			GateReason: "ref is not a tag",
			CleanupErr: errors.New("chmod: permission denied"),
		},
	})

	var sb strings.Builder
	rep.Print(&sb)
	out := sb.String()

	if !strings.Contains(out, "deploy skipped: ref is not a tag") {
		t.Errorf("missing gate reason in output:\n%s", out)
	}
	if !strings.Contains(out, "cleanup failed (ignored)") {
		t.Errorf("missing cleanup warning in output:\n%s", out)
	}
	if !strings.Contains(out, "Run succeeded") {
		t.Errorf("missing overall verdict in output:\n%s", out)
	}
}

func TestRunReport_DeployedCount(t *testing.T) {
	rep := New([]*stage.EntryResult{
		{Entry: entry("a"), State: stage.StateDeployed},
		{Entry: entry("b"), State: stage.StateDeployed},
		{Entry: entry("c"), State: stage.StatePackaged},
	})
	if rep.Deployed() != 2 {
		t.Fatalf("Deployed() = %d, want 2", rep.Deployed())
	}
}
