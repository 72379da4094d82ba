package paxbuilder

import (
	"strings"

	"golang.org/x/xerrors"
)

// Error taxonomy from spec.md §7. Each variant wraps an offending
// path/URL and a cause. Use errors.As (or xerrors.As) to recover a
// specific variant from a returned error.
type (
	// RecipeInvalidError reports a recipe that failed to parse.
	RecipeInvalidError struct {
		Path  string
		Cause error
	}
	// ValidationFailedError reports one or more missing/empty required
	// recipe fields. Violations is never empty when this error is
	// returned.
	ValidationFailedError struct {
		Path       string
		Violations []string
	}
	// HostArchUnsupportedError reports a host architecture outside the
	// closed enumeration (spec.md §3).
	HostArchUnsupportedError struct {
		GOARCH string
	}
	// TargetArchUnsupportedError reports a target/host architecture pair
	// the builder refuses (spec.md §3, one documented exception).
	TargetArchUnsupportedError struct {
		Target TargetArch
		Host   string
	}
	// WorkspaceIOFailedError reports a failure creating, permissioning,
	// or cleaning up a workspace directory.
	WorkspaceIOFailedError struct {
		Path  string
		Cause error
	}
	// SourceUnavailableError reports that every mirror candidate for a
	// source URL failed.
	SourceUnavailableError struct {
		URL   string
		Cause error
	}
	// SourceLayoutUnknownError reports that no extracted subdirectory
	// could be found after extraction.
	SourceLayoutUnknownError struct {
		Workspace string
	}
	// DependencyRecipeMissingError reports that no sibling recipe could
	// be located for a declared build-dependency (spec.md §4.4).
	DependencyRecipeMissingError struct {
		Dependency string
	}
	// DependencyBuildFailedError reports that a recursive dependency
	// sub-build failed. Fatal; propagates to the top-level build.
	DependencyBuildFailedError struct {
		Dependency string
		Cause      error
	}
	// ShellPhaseFailedError reports a non-zero exit from a build,
	// install, post-install, or lifecycle-script command. Carries both
	// captured streams.
	ShellPhaseFailedError struct {
		Command string
		Stdout  string
		Stderr  string
		Cause   error
	}
	// PackagingFailedError reports a failure assembling or hashing an
	// artifact.
	PackagingFailedError struct {
		Path  string
		Cause error
	}
)

func (e *RecipeInvalidError) Error() string {
	return xerrors.Errorf("failed to parse recipe %s: %w", e.Path, e.Cause).Error()
}
func (e *RecipeInvalidError) Unwrap() error { return e.Cause }

func (e *ValidationFailedError) Error() string {
	return "recipe " + e.Path + " failed validation: " + strings.Join(e.Violations, ", ")
}

func (e *HostArchUnsupportedError) Error() string {
	return "unsupported host architecture: " + e.GOARCH
}

func (e *TargetArchUnsupportedError) Error() string {
	return xerrors.Errorf("target architecture %s is not supported on host architecture %s",
		e.Target.AsLabel(), e.Host).Error()
}

func (e *WorkspaceIOFailedError) Error() string {
	return xerrors.Errorf("workspace I/O failed at %s: %w", e.Path, e.Cause).Error()
}
func (e *WorkspaceIOFailedError) Unwrap() error { return e.Cause }

func (e *SourceUnavailableError) Error() string {
	return xerrors.Errorf("source unavailable at %s: %w", e.URL, e.Cause).Error()
}
func (e *SourceUnavailableError) Unwrap() error { return e.Cause }

func (e *SourceLayoutUnknownError) Error() string {
	return "unable to determine extracted source directory under " + e.Workspace
}

func (e *DependencyRecipeMissingError) Error() string {
	return "no sibling recipe found for build-dependency " + e.Dependency
}

func (e *DependencyBuildFailedError) Error() string {
	return xerrors.Errorf("build of dependency %s failed: %w", e.Dependency, e.Cause).Error()
}
func (e *DependencyBuildFailedError) Unwrap() error { return e.Cause }

func (e *ShellPhaseFailedError) Error() string {
	return xerrors.Errorf("command %q failed: %w\nstdout:\n%s\nstderr:\n%s",
		e.Command, e.Cause, e.Stdout, e.Stderr).Error()
}
func (e *ShellPhaseFailedError) Unwrap() error { return e.Cause }

func (e *PackagingFailedError) Error() string {
	return xerrors.Errorf("packaging failed for %s: %w", e.Path, e.Cause).Error()
}
func (e *PackagingFailedError) Unwrap() error { return e.Cause }
