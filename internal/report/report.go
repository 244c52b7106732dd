// Package report summarizes the outcome of a pipeline run.
package report

import (
	"fmt"
	"io"

	"github.com/crossship/crossship/internal/stage"
)

// RunReport aggregates the per-entry outcomes of one run.
type RunReport struct {
	Results []*stage.EntryResult
}

// New builds a report over the given entry results.
func New(results []*stage.EntryResult) *RunReport {
	return &RunReport{Results: results}
}

// Failed reports whether the run as a whole failed: true iff any entry
// reached FAILED. A run with zero deploys is still a success when the
// gate simply wasn't met.
func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Deployed counts the entries that published their artifacts.
func (r *RunReport) Deployed() int {
	n := 0
	for _, res := range r.Results {
		if res.State == stage.StateDeployed {
			n++
		}
	}
	return n
}

// Print writes a per-entry summary followed by the overall verdict.
func (r *RunReport) Print(w io.Writer) {
	for _, res := range r.Results {
		marker := "✅"
		detail := string(res.State)
		switch {
		case res.Failed():
			marker = "❌"
			detail = fmt.Sprintf("%s (%v)", res.State, res.Err)
		case res.State == stage.StatePackaged && res.GateReason != "":
			detail = fmt.Sprintf("%s (deploy skipped: %s)", res.State, res.GateReason)
		}
		fmt.Fprintf(w, "%s %-40s %s\n", marker, res.Entry.Label(), detail)

		if res.CleanupErr != nil {
			fmt.Fprintf(w, "   ⚠️  cleanup failed (ignored): %v\n", res.CleanupErr)
		}
	}

	if r.Failed() {
		fmt.Fprintf(w, "\n❌ Run failed (%d/%d entries failed)\n", r.failedCount(), len(r.Results))
		return
	}
	fmt.Fprintf(w, "\n✅ Run succeeded (%d entries, %d deployed)\n", len(r.Results), r.Deployed())
}

func (r *RunReport) failedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}
