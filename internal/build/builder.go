// Package build implements the top-level Builder: the public entry point
// that wires the recipe loader, workspace manager, source acquisition,
// dependency builder, phase runner, and artifact packager into the single
// sequential pipeline spec.md §5 describes (validate -> workspace ->
// sources -> dependencies -> build commands -> pre-install script ->
// install directories -> install path -> post-install commands ->
// post-install script -> package binary -> package source -> publish ->
// cleanup).
//
// It lives in its own package, rather than the paxbuilder root, because
// every other internal package already imports the root for its error
// taxonomy, HostEnv, and TargetArch — importing them back from the root
// would be a cycle.
package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	paxbuilder "github.com/oreonproject/paxbuilder"
	"github.com/oreonproject/paxbuilder/internal/artifact"
	"github.com/oreonproject/paxbuilder/internal/depbuild"
	"github.com/oreonproject/paxbuilder/internal/phase"
	"github.com/oreonproject/paxbuilder/internal/recipe"
	"github.com/oreonproject/paxbuilder/internal/source"
	"github.com/oreonproject/paxbuilder/internal/workspace"
)

// BuiltPackage is the descriptor returned for each of a build's two
// artifacts (spec.md §3 "Built-package descriptor"). Exactly two are
// returned per successful build: binary first, then source, both
// carrying identical BuildLog content.
type BuiltPackage struct {
	Recipe       recipe.Recipe
	ArtifactPath string
	BuildLog     string
	Checksum     string // hex-encoded SHA-256
	Size         int64
	BuildStart   int64   // unix seconds
	Duration     float64 // seconds
}

// Builder is the core's public entry point (spec.md §6 "Builder public
// contract"). The zero value is not usable; construct one with New.
// Every option method returns a new *Builder rather than mutating the
// receiver, so a caller can safely derive variants (e.g. the dependency
// builder's "one level of recursion max" child) from a shared base.
type Builder struct {
	host       paxbuilder.HostEnv
	hostArch   string // detected host architecture bucket, e.g. "x86_64"
	verbose    bool
	targetArch *paxbuilder.TargetArch
	bubblewrap bool // reserved; never consulted (spec.md §9 Open Questions)
	allowDeps  bool
	outputDir  string // explicit override of the resolved output root
}

// New constructs a Builder bound to host. It fails if the running
// process's architecture is outside the closed enumeration (spec.md §3).
func New(host paxbuilder.HostEnv) (*Builder, error) {
	hostArch, err := paxbuilder.DetectHostArchitecture()
	if err != nil {
		return nil, err
	}
	// An interrupted build must still remove its workspace (spec.md §4.2);
	// BuildPackage registers each workspace with the at-exit registry, and
	// this handler drains it on SIGINT/SIGTERM.
	paxbuilder.CleanupOnInterrupt()
	return &Builder{host: host, hostArch: hostArch}, nil
}

func (b *Builder) clone() *Builder {
	nb := *b
	return &nb
}

// Verbose records the verbosity preference. It is stored but not consulted
// by the pipeline: the core always narrates into the build log, and
// subprocess output is always echoed to the console, whatever this flag
// says.
func (b *Builder) Verbose(v bool) *Builder {
	nb := b.clone()
	nb.verbose = v
	return nb
}

// TargetArch selects a non-host build target. It fails unless target
// equals the host architecture or is the one documented cross exception
// (aarch64 from an x86_64 host; spec.md §3).
func (b *Builder) TargetArch(target paxbuilder.TargetArch) (*Builder, error) {
	if err := paxbuilder.CheckTargetSupported(b.hostArch, target); err != nil {
		return nil, &paxbuilder.TargetArchUnsupportedError{Target: target, Host: b.hostArch}
	}
	nb := b.clone()
	nb.targetArch = &target
	return nb, nil
}

// Bubblewrap records the sandboxing preference. It is stored but never
// consulted by the pipeline (spec.md §9 Open Questions: whether sandboxing
// is a future requirement or a vestige of the source implementation is
// unclear; this core runs phases directly in the host shell either way).
func (b *Builder) Bubblewrap(v bool) *Builder {
	nb := b.clone()
	nb.bubblewrap = v
	return nb
}

// DependencyBuilds enables or disables recursive build-dependency
// resolution (spec.md §4.4).
func (b *Builder) DependencyBuilds(v bool) *Builder {
	nb := b.clone()
	nb.allowDeps = v
	return nb
}

// OutputDirectory overrides the resolved output root (spec.md §4.2's
// first-priority source for the output root).
func (b *Builder) OutputDirectory(dir string) *Builder {
	nb := b.clone()
	nb.outputDir = dir
	return nb
}

// ValidateSpec loads and validates the recipe at path, returning the list
// of violation strings (spec.md §4.1). An empty (nil) result means the
// recipe is valid. A parse failure is reported as *paxbuilder.RecipeInvalidError.
func (b *Builder) ValidateSpec(path string) ([]string, error) {
	r, err := recipe.Load(path)
	if err != nil {
		return nil, &paxbuilder.RecipeInvalidError{Path: path, Cause: err}
	}
	return recipe.Validate(r), nil
}

// roots resolves this builder's workspace/output base directories.
func (b *Builder) roots() workspace.Roots {
	roots := workspace.DefaultRoots(b.host)
	if b.outputDir != "" {
		roots.Output = b.outputDir
	}
	return roots
}

// archLabel returns the architecture label packaging and dependency
// caching key off of: the explicit target if set, else the host.
func (b *Builder) archLabel() string {
	if b.targetArch != nil {
		return b.targetArch.AsLabel()
	}
	return b.hostArch
}

// targetArchOrHost returns a concrete TargetArch for depbuild's cache-key
// computation, defaulting to the host's native architecture when no
// explicit target was set.
func (b *Builder) targetArchOrHost() paxbuilder.TargetArch {
	if b.targetArch != nil {
		return *b.targetArch
	}
	a, _ := paxbuilder.FromLabel(b.hostArch)
	return a
}

// BuildPackage runs the full pipeline for the recipe at path and returns
// its two built-package descriptors, binary first (spec.md §3, §5).
func (b *Builder) BuildPackage(path string) ([]BuiltPackage, error) {
	startTime := time.Now()

	r, err := recipe.Load(path)
	if err != nil {
		return nil, &paxbuilder.RecipeInvalidError{Path: path, Cause: err}
	}
	if violations := recipe.Validate(r); len(violations) > 0 {
		return nil, &paxbuilder.ValidationFailedError{Path: path, Violations: violations}
	}

	roots := b.roots()
	if err := roots.EnsureCreated(); err != nil {
		return nil, err
	}

	ws, err := workspace.New(roots, r.Name, r.Version)
	if err != nil {
		return nil, err
	}
	keep := workspace.KeepWorkspace(b.host)
	// The synchronous Cleanup below covers the success and error paths;
	// this covers SIGINT/SIGTERM mid-phase. Cleanup of an already-removed
	// workspace is a no-op, so both may run.
	paxbuilder.RegisterAtExit(func() error {
		ws.Cleanup(keep)
		return nil
	})

	log := &phase.BuildLog{}
	result, err := b.runPipeline(path, r, ws, roots, log)
	ws.Cleanup(keep)
	if err != nil {
		return nil, err
	}

	duration := time.Since(startTime).Seconds()
	startUnix := startTime.Unix()
	logText := log.String()

	binary, err := describeArtifact(*r, result.BinaryPath, logText, startUnix, duration)
	if err != nil {
		return nil, err
	}
	src, err := describeArtifact(*r, result.SourcePath, logText, startUnix, duration)
	if err != nil {
		return nil, err
	}
	return []BuiltPackage{binary, src}, nil
}

func describeArtifact(r recipe.Recipe, path, log string, startUnix int64, duration float64) (BuiltPackage, error) {
	digest, size, err := artifact.ChecksumAndSize(path)
	if err != nil {
		return BuiltPackage{}, &paxbuilder.PackagingFailedError{Path: path, Cause: err}
	}
	return BuiltPackage{
		Recipe:       r,
		ArtifactPath: path,
		BuildLog:     log,
		Checksum:     digest.Encoded(),
		Size:         size,
		BuildStart:   startUnix,
		Duration:     duration,
	}, nil
}

// runPipeline executes C3 through C6 for an already-loaded and validated
// recipe inside ws, returning the published artifact paths.
func (b *Builder) runPipeline(recipePath string, r *recipe.Recipe, ws *workspace.Workspace, roots workspace.Roots, log *phase.BuildLog) (artifact.Result, error) {
	prep, err := source.Prepare(r.SourceURL, ws.Dir, log)
	if err != nil {
		return artifact.Result{}, err
	}

	depsSysroot := ws.DepsSysroot()
	if err := os.MkdirAll(depsSysroot, 0o755); err != nil {
		return artifact.Result{}, &paxbuilder.WorkspaceIOFailedError{Path: depsSysroot, Cause: err}
	}
	if err := b.buildDependencies(recipePath, r, roots, depsSysroot, log); err != nil {
		return artifact.Result{}, err
	}
	envOverlay := depbuild.EnvOverlay(depsSysroot)

	workingDir := phase.WorkingDir(prep.SourceDir, r.Build.WorkingDirectory)
	env := phase.BuildEnv(r.Build.Environment, b.host)
	phase.MergeEnv(env, envOverlay)

	if err := phase.RunBuildCommands(r.Build.BuildCommands, workingDir, env, log); err != nil {
		return artifact.Result{}, err
	}

	destDir := ws.DestDir()
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return artifact.Result{}, &paxbuilder.WorkspaceIOFailedError{Path: destDir, Cause: err}
	}
	installEnv := make(map[string]string, len(env)+1)
	for k, v := range env {
		installEnv[k] = v
	}
	installEnv["DESTDIR"] = destDir

	if r.Scripts.PreInstall != "" {
		if err := phase.RunScript("pre_install", r.Scripts.PreInstall, destDir, installEnv, log); err != nil {
			return artifact.Result{}, err
		}
	}

	if err := phase.RunInstall(r.Install, workingDir, destDir, installEnv, log); err != nil {
		return artifact.Result{}, err
	}

	if r.Scripts.PostInstall != "" {
		if err := phase.RunScript("post_install", r.Scripts.PostInstall, destDir, installEnv, log); err != nil {
			return artifact.Result{}, err
		}
	}

	identity := artifact.ResolveIdentity(b.host, r.Name, r.Version, b.hostArch, targetLabelOrEmpty(b.targetArch))
	req := artifact.Request{
		Identity:      identity,
		RecipePath:    recipePath,
		WorkspaceDir:  ws.Dir,
		DestDir:       destDir,
		SourceDir:     prep.SourceDir,
		ArchivePath:   prep.ArchivePath,
		SourceURL:     r.SourceURL,
		OutputRoot:    roots.Output,
		JobResultsDir: b.host.Get("PAX_JOB_RESULTS_DIR", ""),
		ResultsMirror: b.host.Get("PAX_RESULTS_MIRROR", ""),
	}
	return artifact.Package(req)
}

func targetLabelOrEmpty(target *paxbuilder.TargetArch) string {
	if target == nil {
		return ""
	}
	return target.AsLabel()
}

// buildDependencies resolves every declared build-dependency (spec.md
// §4.4), skipping entirely (and narrating why) when dependency auto-build
// is disabled.
func (b *Builder) buildDependencies(recipePath string, r *recipe.Recipe, roots workspace.Roots, depsSysroot string, log *phase.BuildLog) error {
	names := depbuild.RecipeDependencyNames(r)
	if len(names) == 0 {
		return nil
	}
	if !b.allowDeps {
		fmt.Fprintf(log, "dependency auto-build disabled, skipping %d declared build dependency(ies)\n", len(names))
		return nil
	}

	locator := depbuild.NewFSLocator(recipePath)
	cache := depbuild.NewCache()
	visited := map[string]bool{}
	dependerName := paxbuilder.Normalize(r.Name)
	cacheDir := filepath.Join(append([]string{roots.Output}, b.outputSubpath()...)...)
	depLog := &depbuild.DepLog{Write: func(s string) { fmt.Fprintln(log, s) }}

	child := b.clone()
	child.allowDeps = false // one level of recursion max (spec.md §4.4)

	for _, name := range names {
		req := depbuild.Request{
			Name:             name,
			DependerName:     dependerName,
			ArtifactCacheDir: cacheDir,
			Target:           b.targetArchOrHost(),
		}
		err := depbuild.BuildDependency(req, locator, child, cache, visited, depsSysroot, depLog)
		var missing *paxbuilder.DependencyRecipeMissingError
		if errors.As(err, &missing) {
			// Missing sibling recipes are logged and swallowed (spec.md
			// §7): the dependency is assumed present on the host.
			fmt.Fprintf(log, "Skipping dependency %s: recipe not found\n", name)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// outputSubpath mirrors artifact.Identity.OutputSubpath using this
// builder's defaults, for computing the dependency artifact cache
// location before a dependency's own recipe (and hence its PAX_* package
// identity overrides) has been loaded.
func (b *Builder) outputSubpath() []string {
	targetRelease := b.host.Get("PAX_TARGET_RELEASE", "oreon11")
	branch := b.host.Get("PAX_BRANCH", "mainstream")
	return []string{
		paxbuilder.Sanitize(targetRelease),
		paxbuilder.Sanitize(branch),
		paxbuilder.Sanitize(b.archLabel()),
	}
}

// BuildDependencyArtifacts implements depbuild.Rebuilder: it runs a full
// sub-build of the dependency recipe at recipePath (with dependency
// auto-build already disabled on the receiver, by construction of the
// child builder in buildDependencies) and returns its binary artifact
// path. The source artifact is not staged into a dependency sysroot: it
// has no usr/ layout and its sources/ tree, if extracted, would pollute
// include/library discovery (EnvOverlay).
func (b *Builder) BuildDependencyArtifacts(recipePath string) ([]string, error) {
	packages, err := b.BuildPackage(recipePath)
	if err != nil {
		return nil, err
	}
	return []string{packages[0].ArtifactPath}, nil
}

// CleanBuildDirectory removes every workspace under the resolved build
// root (spec.md §6). Idempotent: removing an already-absent directory is
// not an error.
func (b *Builder) CleanBuildDirectory() error {
	dir := b.roots().Build
	if err := os.RemoveAll(dir); err != nil {
		return &paxbuilder.WorkspaceIOFailedError{Path: dir, Cause: err}
	}
	return nil
}
