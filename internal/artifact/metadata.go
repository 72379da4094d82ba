// Package artifact implements the artifact packager (spec.md §4.6):
// metadata documents, binary and source archive assembly, checksumming,
// and multi-destination publication.
package artifact

import (
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

// Identity is the effective publication tuple computed from the recipe
// and the PAX_PACKAGE_*/PAX_TARGET_RELEASE/PAX_BRANCH environment
// overrides (spec.md §4.6).
type Identity struct {
	Name          string
	Version       string
	Release       string
	TargetRelease string
	Branch        string
	ArchLabel     string
}

// ResolveIdentity computes the effective publication tuple for a build
// (spec.md §4.6). targetArchLabel is "" when the build has no explicit
// target architecture, in which case hostArchLabel is used.
func ResolveIdentity(env paxbuilder.HostEnv, recipeName, recipeVersion, hostArchLabel, targetArchLabel string) Identity {
	id := Identity{
		Name:          env.Get("PAX_PACKAGE_NAME", recipeName),
		Version:       env.Get("PAX_PACKAGE_VERSION", recipeVersion),
		Release:       env.Get("PAX_PACKAGE_RELEASE", "1"),
		TargetRelease: env.Get("PAX_TARGET_RELEASE", "oreon11"),
		Branch:        env.Get("PAX_BRANCH", "mainstream"),
		ArchLabel:     hostArchLabel,
	}
	if targetArchLabel != "" {
		id.ArchLabel = targetArchLabel
	}
	if id.TargetRelease != "" && !strings.Contains(id.Release, id.TargetRelease) {
		id.Release = id.Release + "." + id.TargetRelease
	}
	return id
}

// BinaryFilename returns "${name}-${version}-${release}-${arch}.pax",
// every component sanitized (spec.md §3).
func (id Identity) BinaryFilename() string {
	return paxbuilder.Sanitize(id.Name) + "-" + paxbuilder.Sanitize(id.Version) + "-" +
		paxbuilder.Sanitize(id.Release) + "-" + paxbuilder.Sanitize(id.ArchLabel) + ".pax"
}

// SourceFilename returns "${name}-${version}-${release}.src.pax" (spec.md §3).
func (id Identity) SourceFilename() string {
	return paxbuilder.Sanitize(id.Name) + "-" + paxbuilder.Sanitize(id.Version) + "-" +
		paxbuilder.Sanitize(id.Release) + ".src.pax"
}

// OutputSubpath returns the "<target_release>/<branch>/<arch>" layout
// under the configured output root (spec.md §3 "Output layout").
func (id Identity) OutputSubpath() []string {
	return []string{
		paxbuilder.Sanitize(id.TargetRelease),
		paxbuilder.Sanitize(id.Branch),
		paxbuilder.Sanitize(id.ArchLabel),
	}
}

// Metadata is the document packaged alongside every artifact (spec.md §4.6).
type Metadata struct {
	Package struct {
		Name          string `yaml:"name" json:"name"`
		Version       string `yaml:"version" json:"version"`
		Release       string `yaml:"release" json:"release"`
		Branch        string `yaml:"branch" json:"branch"`
		TargetRelease string `yaml:"target_release" json:"target_release"`
		Architecture  string `yaml:"architecture" json:"architecture"`
		SourceURL     string `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	} `yaml:"package" json:"package"`
	Artifacts struct {
		Binary string `yaml:"binary" json:"binary"`
		Source string `yaml:"source" json:"source"`
	} `yaml:"artifacts" json:"artifacts"`
}

// NewMetadata builds the metadata document for one build (spec.md §4.6).
func NewMetadata(id Identity, sourceURL string) Metadata {
	var m Metadata
	m.Package.Name = id.Name
	m.Package.Version = id.Version
	m.Package.Release = id.Release
	m.Package.Branch = id.Branch
	m.Package.TargetRelease = id.TargetRelease
	m.Package.Architecture = id.ArchLabel
	m.Package.SourceURL = sourceURL
	m.Artifacts.Binary = id.BinaryFilename()
	m.Artifacts.Source = id.SourceFilename()
	return m
}

// MarshalYAML serializes m the way the recipe loader's yaml.v3 dependency
// is used everywhere else in this module (spec.md §4.6 "YAML + JSON").
func (m Metadata) MarshalYAML() ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize metadata to YAML: %w", err)
	}
	return out, nil
}

// MarshalJSONPretty serializes m as indented JSON.
func (m Metadata) MarshalJSONPretty() ([]byte, error) {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize metadata to JSON: %w", err)
	}
	return out, nil
}
