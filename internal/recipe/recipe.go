// Package recipe implements the recipe model and loader (spec.md §4.1):
// parsing a YAML package recipe into a typed in-memory form and validating
// its required fields.
package recipe

import (
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Recipe is the typed in-memory form of a pax package recipe (spec.md §3).
type Recipe struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	License     string `yaml:"license"`

	Homepage   string `yaml:"homepage,omitempty"`
	Repository string `yaml:"repository,omitempty"`
	SourceURL  string `yaml:"source_url,omitempty"`

	Keywords   []string `yaml:"keywords,omitempty"`
	Categories []string `yaml:"categories,omitempty"`

	Dependencies Dependencies `yaml:"dependencies"`
	Build        Build        `yaml:"build"`
	Install      Install      `yaml:"install"`
	Files        Files        `yaml:"files"`
	Scripts      Scripts      `yaml:"scripts"`

	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// Dependencies holds the four dependency lists (spec.md §3).
type Dependencies struct {
	BuildDependencies    []Dependency `yaml:"build_dependencies,omitempty"`
	RuntimeDependencies  []Dependency `yaml:"runtime_dependencies,omitempty"`
	OptionalDependencies []Dependency `yaml:"optional_dependencies,omitempty"`
	Conflicts            []Dependency `yaml:"conflicts,omitempty"`
}

// Dependency names one package dependency, optionally version-constrained.
type Dependency struct {
	Name              string `yaml:"name"`
	VersionConstraint string `yaml:"version_constraint,omitempty"`
	Optional          bool   `yaml:"optional,omitempty"`
	Reason            string `yaml:"reason,omitempty"`
}

// BuildSystem classifies the recipe's upstream build tooling. It is parsed
// and carried in the recipe snapshot but never consulted to choose a
// command sequence — spec.md's build_commands is always what actually
// runs (see SPEC_FULL.md "C1 Recipe Model & Loader").
type BuildSystem string

const (
	Make     BuildSystem = "Make"
	CMake    BuildSystem = "CMake"
	Meson    BuildSystem = "Meson"
	Cargo    BuildSystem = "Cargo"
	Npm      BuildSystem = "Npm"
	Pip      BuildSystem = "Pip"
	CustomBS BuildSystem = "Custom"
)

// UnmarshalYAML validates build_system against the closed set. An absent
// field stays the zero value; an unknown value is a parse failure.
func (b *BuildSystem) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch BuildSystem(s) {
	case Make, CMake, Meson, Cargo, Npm, Pip, CustomBS, "":
		*b = BuildSystem(s)
		return nil
	}
	return xerrors.Errorf("unknown build_system %q", s)
}

// Build describes how the recipe builds upstream source (spec.md §3).
type Build struct {
	BuildSystem         BuildSystem       `yaml:"build_system"`
	BuildCommands       []string          `yaml:"build_commands"`
	BuildDependencies   []string          `yaml:"build_dependencies,omitempty"`
	BuildFlags          []string          `yaml:"build_flags,omitempty"`
	Environment         map[string]string `yaml:"environment,omitempty"`
	WorkingDirectory    string            `yaml:"working_directory,omitempty"`
	TargetArchitectures []string          `yaml:"target_architectures,omitempty"`
	CrossCompilerPrefix string            `yaml:"cross_compiler_prefix,omitempty"`
	TargetSysroot       string            `yaml:"target_sysroot,omitempty"`
}

// InstallMethod selects which branch of the install phase runs (spec.md §4.5).
type InstallMethod string

const (
	CopyFiles      InstallMethod = "CopyFiles"
	RunCommands    InstallMethod = "RunCommands"
	ExtractArchive InstallMethod = "ExtractArchive"
	CustomInstall  InstallMethod = "Custom"
)

// UnmarshalYAML validates install_method against the closed set.
func (m *InstallMethod) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch InstallMethod(s) {
	case CopyFiles, RunCommands, ExtractArchive, CustomInstall, "":
		*m = InstallMethod(s)
		return nil
	}
	return xerrors.Errorf("unknown install_method %q", s)
}

// Install describes how staged build output becomes the destdir tree
// (spec.md §3).
type Install struct {
	InstallMethod       InstallMethod `yaml:"install_method"`
	InstallCommands     []string      `yaml:"install_commands,omitempty"`
	InstallDirectories  []string      `yaml:"install_directories,omitempty"`
	InstallFiles        []FileMapping `yaml:"install_files,omitempty"`
	PostInstallCommands []string      `yaml:"post_install_commands,omitempty"`
}

// FileMapping copies one source path to one destdir-relative destination.
type FileMapping struct {
	Source      string  `yaml:"source"`
	Destination string  `yaml:"destination"`
	Permissions *uint32 `yaml:"permissions,omitempty"`
	Owner       string  `yaml:"owner,omitempty"`
	Group       string  `yaml:"group,omitempty"`
}

// Files classifies the staged tree for downstream consumers. Parsed but
// not consulted by this core (spec.md §9 Open Questions): the binary
// archive always packs the entire destdir.
type Files struct {
	IncludePatterns    []string `yaml:"include_patterns,omitempty"`
	ExcludePatterns    []string `yaml:"exclude_patterns,omitempty"`
	BinaryFiles        []string `yaml:"binary_files,omitempty"`
	ConfigFiles        []string `yaml:"config_files,omitempty"`
	DocumentationFiles []string `yaml:"documentation_files,omitempty"`
	LicenseFiles       []string `yaml:"license_files,omitempty"`
}

// Scripts holds the package lifecycle shell fragments (spec.md §3).
type Scripts struct {
	PreInstall    string `yaml:"pre_install,omitempty"`
	PostInstall   string `yaml:"post_install,omitempty"`
	PreUninstall  string `yaml:"pre_uninstall,omitempty"`
	PostUninstall string `yaml:"post_uninstall,omitempty"`
	PreUpgrade    string `yaml:"pre_upgrade,omitempty"`
	PostUpgrade   string `yaml:"post_upgrade,omitempty"`
}
