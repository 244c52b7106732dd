// Package matrix defines the build target matrix for a release pipeline run.
package matrix

import (
	"fmt"
	"strings"
)

// OS identifies the operating system family of a target.
type OS string

const (
	OSLinux   OS = "linux"
	OSMacOS   OS = "macos"
	OSFreeBSD OS = "freebsd"
	OSNetBSD  OS = "netbsd"
)

// Entry is one (platform, configuration) combination the pipeline builds
// independently. TargetTriple uniquely identifies the build environment.
type Entry struct {
	// TargetTriple is the cross-compilation target (e.g. "x86_64-unknown-linux-musl").
	TargetTriple string `yaml:"target"`
	// NiceName is an optional display alias used for artifact naming
	// instead of the raw triple (e.g. "linux_x86_64").
	NiceName string `yaml:"nice_name,omitempty"`
	// OS is the operating system family. Inferred from the triple when empty.
	OS OS `yaml:"os,omitempty"`
	// TestsDisabled makes the script stage build-only, for targets whose
	// binaries the host cannot execute (cross-compiled BSDs).
	TestsDisabled bool `yaml:"disable_tests,omitempty"`
}

// Label returns the name used for artifacts built from this entry:
// the nice name when present, otherwise the target triple.
func (e Entry) Label() string {
	if e.NiceName != "" {
		return e.NiceName
	}
	return e.TargetTriple
}

// Validate checks a single entry for structural problems.
func (e Entry) Validate() error {
	if e.TargetTriple == "" {
		return fmt.Errorf("target triple is required")
	}
	if e.OS != "" && !isValidOS(e.OS) {
		return fmt.Errorf("invalid os %q (must be linux, macos, freebsd, or netbsd)", e.OS)
	}
	return nil
}

// Normalize fills derivable fields, currently just the OS family.
func (e Entry) Normalize() Entry {
	if e.OS == "" {
		e.OS = OSFromTriple(e.TargetTriple)
	}
	return e
}

// OSFromTriple guesses the OS family from a target triple. Unknown triples
// default to linux, which matches the bulk of a typical matrix.
func OSFromTriple(triple string) OS {
	switch {
	case strings.Contains(triple, "darwin"), strings.Contains(triple, "apple"):
		return OSMacOS
	case strings.Contains(triple, "freebsd"):
		return OSFreeBSD
	case strings.Contains(triple, "netbsd"):
		return OSNetBSD
	default:
		return OSLinux
	}
}

func isValidOS(os OS) bool {
	switch os {
	case OSLinux, OSMacOS, OSFreeBSD, OSNetBSD:
		return true
	default:
		return false
	}
}

// Matrix is the full set of entries a pipeline run fans out over.
type Matrix []Entry

// Expand returns the normalized entry set for a run. Entries are
// independent; no ordering between them is guaranteed or required.
func (m Matrix) Expand() []Entry {
	entries := make([]Entry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e.Normalize())
	}
	return entries
}

// Validate checks every entry and rejects duplicate target triples.
func (m Matrix) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("matrix must contain at least one entry")
	}

	seen := make(map[string]bool, len(m))
	for i, e := range m {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[e.TargetTriple] {
			return fmt.Errorf("duplicate target triple %q", e.TargetTriple)
		}
		seen[e.TargetTriple] = true
	}
	return nil
}

// Filter returns the entries whose triple or nice name matches one of the
// given names. An unknown name is an error rather than a silent no-op.
func (m Matrix) Filter(names []string) (Matrix, error) {
	if len(names) == 0 {
		return m, nil
	}

	byName := make(map[string]Entry, len(m)*2)
	for _, e := range m {
		byName[e.TargetTriple] = e
		if e.NiceName != "" {
			byName[e.NiceName] = e
		}
	}

	var filtered Matrix
	for _, name := range names {
		e, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}
