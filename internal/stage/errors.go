package stage

import "fmt"

// SetupError indicates the install stage failed for one entry.
type SetupError struct {
	Target string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("install failed for %s: %v", e.Target, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// BuildError indicates the script stage (compile and, unless disabled,
// test) failed for one entry.
type BuildError struct {
	Target string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build/test failed for %s: %v", e.Target, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// PackageError indicates the before_deploy stage failed for one entry.
type PackageError struct {
	Target string
	Err    error
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("packaging failed for %s: %v", e.Target, e.Err)
}

func (e *PackageError) Unwrap() error { return e.Err }
