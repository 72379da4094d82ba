// Package paxbuilder implements the core of the pax source-package build
// engine: recipe loading, workspace lifecycle, source acquisition,
// recursive build-dependency staging, phase execution, and artifact
// packaging. See the Builder type for the public entry point.
package paxbuilder

import (
	"runtime"
	"strings"

	"golang.org/x/xerrors"
)

// TargetArch is the closed set of architectures the builder knows how to
// target. The zero value is not a valid architecture.
type TargetArch int

const (
	X86_64 TargetArch = iota + 1
	X86_64v1
	X86_64v2
	X86_64v3
	Aarch64
	Armv7l
	Armv8l
	Riscv64
	Powerpc64le
	S390x
)

type archInfo struct {
	label          string
	triple         string
	compilerPrefix string
	// hostFamily is the host-architecture bucket (as reported by
	// detectHostArchitecture) that this target is considered native for.
	hostFamily string
}

var archTable = map[TargetArch]archInfo{
	X86_64:      {"x86_64", "x86_64-unknown-linux-gnu", "x86_64-linux-gnu-", "x86_64"},
	X86_64v1:    {"x86_64_v1", "x86_64-unknown-linux-gnu", "x86_64-linux-gnu-", "x86_64"},
	X86_64v2:    {"x86_64_v2", "x86_64-unknown-linux-gnu", "x86_64-linux-gnu-", "x86_64"},
	X86_64v3:    {"x86_64_v3", "x86_64-unknown-linux-gnu", "x86_64-linux-gnu-", "x86_64"},
	Aarch64:     {"aarch64", "aarch64-unknown-linux-gnu", "aarch64-linux-gnu-", "aarch64"},
	Armv7l:      {"armv7l", "armv7-unknown-linux-gnueabihf", "arm-linux-gnueabihf-", "armv7l"},
	Armv8l:      {"armv8l", "aarch64-unknown-linux-gnu", "aarch64-linux-gnu-", "aarch64"},
	Riscv64:     {"riscv64", "riscv64gc-unknown-linux-gnu", "riscv64-linux-gnu-", "riscv64"},
	Powerpc64le: {"powerpc64le", "powerpc64le-unknown-linux-gnu", "powerpc64le-linux-gnu-", "powerpc64le"},
	S390x:       {"s390x", "s390x-unknown-linux-gnu", "s390x-linux-gnu-", "s390x"},
}

var archLabels = map[string]TargetArch{
	"x86_64": X86_64, "amd64": X86_64,
	"x86_64v1": X86_64v1, "x86_64_v1": X86_64v1,
	"x86_64v2": X86_64v2, "x86_64_v2": X86_64v2,
	"x86_64v3": X86_64v3, "x86_64_v3": X86_64v3,
	"aarch64": Aarch64, "arm64": Aarch64,
	"armv7l": Armv7l, "armv7": Armv7l,
	"armv8l":      Armv8l,
	"riscv64":     Riscv64,
	"powerpc64le": Powerpc64le, "ppc64le": Powerpc64le,
	"s390x": S390x,
}

// AsLabel returns the canonical short label for a, e.g. "x86_64_v3".
func (a TargetArch) AsLabel() string {
	return archTable[a].label
}

// Triple returns the canonical cross-compiler target triple for a.
func (a TargetArch) Triple() string {
	return archTable[a].triple
}

// CrossCompilerPrefix returns the canonical toolchain prefix for a, e.g.
// "aarch64-linux-gnu-".
func (a TargetArch) CrossCompilerPrefix() string {
	return archTable[a].compilerPrefix
}

// hostFamily buckets a into the coarse host-architecture identity used for
// native/cross-compile comparisons.
func (a TargetArch) hostFamily() string {
	return archTable[a].hostFamily
}

// FromLabel parses a target architecture label, accepting both the
// canonical spelling and common aliases (amd64, arm64, x86_64_v1, ...).
func FromLabel(label string) (TargetArch, bool) {
	a, ok := archLabels[label]
	return a, ok
}

// detectHostArchitecture maps runtime.GOARCH onto the host-family buckets
// used for cross-compile validation.
func detectHostArchitecture() (string, error) {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		return "aarch64", nil
	case "arm":
		return "armv7l", nil
	case "riscv64":
		return "riscv64", nil
	case "ppc64le":
		return "powerpc64le", nil
	case "s390x":
		return "s390x", nil
	default:
		return "", xerrors.Errorf("unsupported host architecture: %s", runtime.GOARCH)
	}
}

// checkTargetSupported enforces spec.md §3's one documented cross-compile
// exception: aarch64 targets are permitted from an x86_64 host, everything
// else must match the host's architecture family exactly.
func checkTargetSupported(hostArch string, target TargetArch) error {
	targetFamily := target.hostFamily()
	if targetFamily == hostArch {
		return nil
	}
	if targetFamily == "aarch64" && hostArch == "x86_64" {
		return nil
	}
	return xerrors.Errorf(
		"target architecture %s is not supported on host architecture %s. "+
			"pax-builder only supports native builds. Please build on a %s machine or "+
			"remove %s from target_architectures in your recipe",
		targetFamily, hostArch, targetFamily, targetFamily)
}

// DetectHostArchitecture reports the host-family bucket for the running
// process's GOARCH (spec.md §3), wrapped as *HostArchUnsupportedError when
// GOARCH falls outside the closed enumeration. Exported for the builder
// package, which otherwise has no way to classify the host before
// constructing a Builder (spec.md §6 "Construct a builder (fails if host
// arch is outside the enumeration)").
func DetectHostArchitecture() (string, error) {
	arch, err := detectHostArchitecture()
	if err != nil {
		return "", &HostArchUnsupportedError{GOARCH: runtime.GOARCH}
	}
	return arch, nil
}

// CheckTargetSupported is the exported form of checkTargetSupported, used
// by the builder package to validate a requested target architecture
// against the host (spec.md §3's one documented cross exception).
func CheckTargetSupported(hostArch string, target TargetArch) error {
	return checkTargetSupported(hostArch, target)
}

// knownMachinePrefixes lists the well-known machine identifiers every
// cross-compiler prefix must start with (testable property, spec.md §8).
var knownMachinePrefixes = []string{"x86_64-", "aarch64-", "arm-", "riscv64-", "powerpc64le-", "s390x-"}

func hasKnownMachinePrefix(prefix string) bool {
	for _, p := range knownMachinePrefixes {
		if strings.HasPrefix(prefix, p) {
			return true
		}
	}
	return false
}
