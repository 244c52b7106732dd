package matrix

import (
	"testing"
)

func TestEntry_Label_NiceNameWinsOverTriple(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name:  "nice name present",
			entry: Entry{TargetTriple: "x86_64-unknown-linux-musl", NiceName: "linux_x86_64"},
			want:  "linux_x86_64",
		},
		{
			name:  "nice name absent",
			entry: Entry{TargetTriple: "x86_64-unknown-netbsd"},
			want:  "x86_64-unknown-netbsd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOSFromTriple(t *testing.T) {
	tests := []struct {
		triple string
		want   OS
	}{
		{"x86_64-unknown-linux-musl", OSLinux},
		{"x86_64-unknown-linux-gnu", OSLinux},
		{"x86_64-apple-darwin", OSMacOS},
		{"x86_64-unknown-freebsd", OSFreeBSD},
		{"x86_64-unknown-netbsd", OSNetBSD},
		{"i686-unknown-linux-musl", OSLinux},
	}

	for _, tt := range tests {
		if got := OSFromTriple(tt.triple); got != tt.want {
			t.Errorf("OSFromTriple(%q) = %q, want %q", tt.triple, got, tt.want)
		}
	}
}

func TestMatrix_Validate_RejectsDuplicateTriples(t *testing.T) {
	m := Matrix{
		{TargetTriple: "x86_64-unknown-linux-musl"},
		{TargetTriple: "x86_64-unknown-linux-musl", NiceName: "dup"},
	}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for duplicate triple, got nil")
	}
}

func TestMatrix_Validate_RejectsEmptyMatrixAndBadEntries(t *testing.T) {
	if err := (Matrix{}).Validate(); err == nil {
		t.Fatal("expected error for empty matrix")
	}
	if err := (Matrix{{TargetTriple: ""}}).Validate(); err == nil {
		t.Fatal("expected error for empty triple")
	}
	if err := (Matrix{{TargetTriple: "a", OS: "plan9"}}).Validate(); err == nil {
		t.Fatal("expected error for invalid os")
	}
}

func TestMatrix_Expand_NormalizesOS(t *testing.T) {
	m := Matrix{
		{TargetTriple: "x86_64-unknown-freebsd"},
		{TargetTriple: "x86_64-unknown-linux-gnu", OS: OSLinux},
	}

	entries := m.Expand()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].OS != OSFreeBSD {
		t.Errorf("expected inferred freebsd, got %q", entries[0].OS)
	}
	if entries[1].OS != OSLinux {
		t.Errorf("expected explicit linux preserved, got %q", entries[1].OS)
	}
}

func TestMatrix_Filter(t *testing.T) {
	m := Matrix{
		{TargetTriple: "x86_64-unknown-linux-musl", NiceName: "linux_x86_64"},
		{TargetTriple: "x86_64-apple-darwin", NiceName: "mac_x86_64"},
	}

	byTriple, err := m.Filter([]string{"x86_64-apple-darwin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byTriple) != 1 || byTriple[0].NiceName != "mac_x86_64" {
		t.Fatalf("unexpected filter result: %+v", byTriple)
	}

	byNice, err := m.Filter([]string{"linux_x86_64"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byNice) != 1 || byNice[0].TargetTriple != "x86_64-unknown-linux-musl" {
		t.Fatalf("unexpected filter result: %+v", byNice)
	}

	if _, err := m.Filter([]string{"no-such-target"}); err == nil {
		t.Fatal("expected error for unknown target")
	}

	all, err := m.Filter(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("empty filter should return all entries, got %d", len(all))
	}
}
