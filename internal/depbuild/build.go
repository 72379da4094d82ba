package depbuild

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/xerrors"

	paxbuilder "github.com/oreonproject/paxbuilder"
	"github.com/oreonproject/paxbuilder/internal/recipe"
)

// Request names one build-dependency to resolve into a dependency root.
type Request struct {
	Name         string
	DependerName string // normalized name of the package requesting it, for loop prevention
	// ArtifactCacheDir is the directory ExpectedArtifactCacheKey is
	// joined against to test for an already-built artifact (spec.md
	// §4.4 "Caching"); empty disables the on-disk cache check.
	ArtifactCacheDir string
	Target           paxbuilder.TargetArch
}

// Rebuilder is the narrow surface the root Builder exposes to depbuild,
// avoiding a mutually recursive import between the two packages (spec.md
// §9 design note: model the dependency builder as a pure function with
// the recursive builder passed in explicitly).
type Rebuilder interface {
	BuildDependencyArtifacts(recipePath string) ([]string, error)
}

// Cache records, within a single top-level build, which dependency
// names have already been staged, and their resulting artifact paths.
type Cache struct {
	staged map[string][]string
}

func NewCache() *Cache { return &Cache{staged: make(map[string][]string)} }

// BuildDependency resolves dependencyName against locator, honoring the
// name filter, loop prevention, and artifact-exists caching described in
// spec.md §4.4, then extracts every resulting artifact into
// depsSysrootDir via "tar -xzf". It is a pure function over its
// arguments: the visited set and cache are supplied by the caller, and
// no package-level state is touched.
func BuildDependency(
	req Request,
	locator Locator,
	rebuild Rebuilder,
	cache *Cache,
	visited map[string]bool,
	depsSysrootDir string,
	log *DepLog,
) error {
	if !paxbuilder.ShouldAutoBuildDependency(req.Name) {
		log.Logf("skipping dependency %s: does not match -devel/-dev/-headers/-sdk filter", req.Name)
		return nil
	}

	normalized := paxbuilder.Normalize(req.Name)
	if normalized == req.DependerName {
		return nil // refuse a dependency on oneself
	}
	if visited[normalized] {
		log.Logf("skipping dependency %s: already visited in this build", req.Name)
		return nil
	}
	visited[normalized] = true

	if artifacts, ok := cache.staged[normalized]; ok {
		return extractAll(artifacts, depsSysrootDir)
	}

	recipePath, ok := locator.Locate(req.Name)
	if !ok {
		return &paxbuilder.DependencyRecipeMissingError{Dependency: req.Name}
	}

	if req.ArtifactCacheDir != "" {
		if cached, ok := lookupArtifactCache(req, recipePath); ok {
			cache.staged[normalized] = []string{cached}
			return extractAll([]string{cached}, depsSysrootDir)
		}
	}

	artifacts, err := rebuild.BuildDependencyArtifacts(recipePath)
	if err != nil {
		return &paxbuilder.DependencyBuildFailedError{Dependency: req.Name, Cause: err}
	}

	cache.staged[normalized] = artifacts
	return extractAll(artifacts, depsSysrootDir)
}

// lookupArtifactCache tests whether a file named by ExpectedArtifactCacheKey
// exists in req.ArtifactCacheDir (spec.md §4.4 "Caching"): the dependency's
// own recipe is loaded only far enough to read its name and version, never
// validated or executed. artifact.Package publishes binaries as
// name-version-release-arch.pax, so an artifact published by a build of
// this core does not match this key.
func lookupArtifactCache(req Request, recipePath string) (string, bool) {
	depRecipe, err := recipe.Load(recipePath)
	if err != nil {
		return "", false
	}
	candidate := filepath.Join(req.ArtifactCacheDir, ExpectedArtifactCacheKey(depRecipe.Name, depRecipe.Version, req.Target))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

func extractAll(artifacts []string, destination string) error {
	for _, artifact := range artifacts {
		cmd := exec.Command("tar", "-xzf", artifact, "-C", destination)
		if out, err := cmd.CombinedOutput(); err != nil {
			return xerrors.Errorf("failed to extract dependency artifact %s: %w (%s)", artifact, err, out)
		}
	}
	return nil
}

// ExpectedArtifactCacheKey computes the cache filename spec.md §4.4
// describes: "${depname}-${depversion}-${target_label}.pax", where
// target_label is the canonical short label (spec.md GLOSSARY), not the
// cross-compiler triple — a triple collapses x86_64_v1/v2/v3 and
// armv8l onto their base architecture and would alias distinct targets
// onto the same cache entry.
func ExpectedArtifactCacheKey(depName, depVersion string, target paxbuilder.TargetArch) string {
	return fmt.Sprintf("%s-%s-%s.pax", paxbuilder.Sanitize(depName), paxbuilder.Sanitize(depVersion), target.AsLabel())
}

// RecipeDependencyNames returns every declared build-dependency name
// from both dependencies.build_dependencies and build.build_dependencies
// (spec.md §4.4).
func RecipeDependencyNames(r *recipe.Recipe) []string {
	names := make([]string, 0, len(r.Dependencies.BuildDependencies)+len(r.Build.BuildDependencies))
	for _, dep := range r.Dependencies.BuildDependencies {
		names = append(names, dep.Name)
	}
	names = append(names, r.Build.BuildDependencies...)
	return names
}
