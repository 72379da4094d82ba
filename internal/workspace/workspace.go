// Package workspace implements the per-build workspace lifecycle
// (spec.md §4.2): base directory resolution, per-build directory naming,
// and failure-path cleanup.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

const dirMode = 0o755

// Roots holds the four base directories that EnsureCreated creates and
// that every build reuses (spec.md §4.2).
type Roots struct {
	Build     string
	BuildRoot string
	Temp      string
	Output    string
}

// DefaultRoots resolves the base directories following spec.md §4.2's
// precedence for the output root, with build/buildroot/temp anchored under
// $XDG_DATA_HOME/pax-builder (falling back to ~/.local/share when no XDG
// env vars are set), the way cruciblehq/cruxd's internal/paths resolves
// its runtime directory.
func DefaultRoots(env paxbuilder.HostEnv) Roots {
	base := filepath.Join(xdg.DataHome, "pax-builder")

	output := env.Get("PAX_RESULTS_ROOT", "")
	if output == "" {
		if projectRoot, ok := env.Lookup("PAX_BUILDER_PROJECT_ROOT"); ok && projectRoot != "" {
			output = filepath.Join(projectRoot, "results")
		}
	}
	if output == "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		output = filepath.Join(cwd, "results")
	}

	return Roots{
		Build:     filepath.Join(base, "build"),
		BuildRoot: filepath.Join(base, "buildroot"),
		Temp:      filepath.Join(base, "temp"),
		Output:    output,
	}
}

// EnsureCreated creates all four roots with mode 0755.
func (r Roots) EnsureCreated() error {
	for _, dir := range []string{r.Build, r.BuildRoot, r.Temp, r.Output} {
		if err := createWithPermissions(dir); err != nil {
			return err
		}
	}
	return nil
}

func createWithPermissions(path string) error {
	if err := os.MkdirAll(path, dirMode); err != nil {
		return &paxbuilder.WorkspaceIOFailedError{Path: path, Cause: err}
	}
	if err := os.Chmod(path, dirMode); err != nil {
		return &paxbuilder.WorkspaceIOFailedError{Path: path, Cause: err}
	}
	return nil
}

// Workspace is one build's isolated working directory.
type Workspace struct {
	Dir string
}

// New creates a fresh per-build workspace under roots.Build, named
// sanitize(name)-sanitize(version)-<microseconds since epoch> (spec.md §3).
func New(roots Roots, name, version string) (*Workspace, error) {
	buildID := fmt.Sprintf("%s-%s-%d",
		paxbuilder.Sanitize(name), paxbuilder.Sanitize(version), time.Now().UnixMicro())
	dir := filepath.Join(roots.Build, buildID)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, &paxbuilder.WorkspaceIOFailedError{Path: dir, Cause: err}
	}
	return &Workspace{Dir: dir}, nil
}

// DepsSysroot is the overlay directory receiving build-dependency artifacts.
func (w *Workspace) DepsSysroot() string { return filepath.Join(w.Dir, "deps-sysroot") }

// DestDir is the staged install tree.
func (w *Workspace) DestDir() string { return filepath.Join(w.Dir, "destdir") }

// KeepWorkspace reports whether PAX_BUILDER_KEEP_WORKSPACE requests
// workspace retention (spec.md §4.2).
func KeepWorkspace(env paxbuilder.HostEnv) bool {
	return env.Bool("PAX_BUILDER_KEEP_WORKSPACE")
}

// Cleanup removes the workspace unless keep is true. A failure to remove
// is non-fatal and silent (spec.md §4.2): no phase may assume the
// workspace persists, but a stray directory must never fail a build that
// otherwise succeeded.
func (w *Workspace) Cleanup(keep bool) {
	if keep {
		return
	}
	_ = os.RemoveAll(w.Dir)
}
