// Package depbuild implements the dependency builder (spec.md §4.4):
// sibling recipe discovery, loop-safe recursive sub-builds, artifact
// caching, and the environment overlay computed from a populated
// dependency sysroot.
package depbuild

import (
	"os"
	"path/filepath"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

// Locator resolves a declared dependency name to a sibling recipe file.
// The filesystem-backed implementation below is the only one shipped;
// the interface exists so build_dependency can be tested against a
// stub without touching disk (spec.md §9 design note).
type Locator interface {
	Locate(dependencyName string) (recipePath string, ok bool)
}

// FSLocator scans the release directory (the grandparent of the
// in-progress recipe file: recipe-file -> package-dir -> release-dir)
// for a sibling package directory whose normalized name matches the
// dependency.
type FSLocator struct {
	ReleaseDir string
}

// NewFSLocator derives the release directory from the path of the
// recipe currently being built.
func NewFSLocator(recipePath string) FSLocator {
	packageDir := filepath.Dir(recipePath)
	return FSLocator{ReleaseDir: filepath.Dir(packageDir)}
}

func (l FSLocator) Locate(dependencyName string) (string, bool) {
	keys := candidateKeys(dependencyName)

	entries, err := os.ReadDir(l.ReleaseDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		normalized := paxbuilder.Normalize(entry.Name())
		for _, key := range keys {
			if normalized == key {
				if recipePath, ok := findRecipeSpec(filepath.Join(l.ReleaseDir, entry.Name())); ok {
					return recipePath, true
				}
			}
		}
	}
	return "", false
}

// findRecipeSpec returns the first .yaml/.yml file inside recipeDir. The
// recipe file's name is not fixed; a package directory may carry e.g.
// pax.yaml or <name>.yml.
func findRecipeSpec(recipeDir string) (string, bool) {
	entries, err := os.ReadDir(recipeDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			return filepath.Join(recipeDir, entry.Name()), true
		}
	}
	return "", false
}

// candidateKeys computes {normalize(D), normalize(D without a trailing
// -devel|-dev|-headers suffix)} (spec.md §4.4).
func candidateKeys(name string) []string {
	keys := []string{paxbuilder.Normalize(name)}
	if stripped, ok := trimKnownSuffix(name); ok {
		keys = append(keys, paxbuilder.Normalize(stripped))
	}
	return keys
}

// Only three suffixes participate in discovery-key stripping (spec.md
// §4.4); -sdk is recognized by the separate auto-build name filter
// (paxbuilder.ShouldAutoBuildDependency) but not stripped here.
func trimKnownSuffix(name string) (string, bool) {
	for _, suffix := range []string{"-devel", "-dev", "-headers"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name[:len(name)-len(suffix)], true
		}
	}
	return "", false
}
