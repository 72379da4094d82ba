package depbuild

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvOverlay computes the CPPFLAGS/CFLAGS/LDFLAGS/LIBRARY_PATH/
// LD_LIBRARY_PATH/PKG_CONFIG_PATH/PATH/CMAKE_PREFIX_PATH additions from a
// populated dependency sysroot (spec.md §4.4). The sysroot mirrors
// standard UNIX prefixes, so both usr/ and usr/local/ (and lib64
// variants) are candidates. Only paths that exist on disk contribute;
// empty contributions are omitted entirely so phase.MergeEnv's "ignore
// empty" rule is a no-op downstream.
func EnvOverlay(depsSysroot string) map[string]string {
	includeDirs := existingDirs(depsSysroot,
		"usr/include",
		"usr/local/include",
	)
	libraryDirs := existingDirs(depsSysroot,
		"usr/lib",
		"usr/lib64",
		"usr/local/lib",
		"usr/local/lib64",
	)
	pkgConfigDirs := existingDirs(depsSysroot,
		"usr/lib/pkgconfig",
		"usr/lib64/pkgconfig",
		"usr/local/lib/pkgconfig",
		"usr/local/lib64/pkgconfig",
	)
	binDirs := existingDirs(depsSysroot,
		"usr/bin",
		"usr/sbin",
		"usr/local/bin",
		"usr/local/sbin",
	)
	cmakePrefixes := existingDirs(depsSysroot,
		"usr",
		"usr/local",
	)

	overlay := make(map[string]string)

	if flags := prefixJoin("-I", includeDirs, " "); flags != "" {
		overlay["CPPFLAGS"] = flags
		overlay["CFLAGS"] = flags
	}
	if flags := prefixJoin("-L", libraryDirs, " "); flags != "" {
		overlay["LDFLAGS"] = flags
		overlay["LIBRARY_PATH"] = strings.Join(libraryDirs, ":")
		overlay["LD_LIBRARY_PATH"] = strings.Join(libraryDirs, ":")
	}
	if len(pkgConfigDirs) > 0 {
		overlay["PKG_CONFIG_PATH"] = strings.Join(pkgConfigDirs, ":")
	}
	if len(binDirs) > 0 {
		overlay["PATH"] = strings.Join(binDirs, ":")
	}
	if len(cmakePrefixes) > 0 {
		overlay["CMAKE_PREFIX_PATH"] = strings.Join(cmakePrefixes, ":")
	}

	return overlay
}

// existingDirs filters the slash-separated candidates under base down to
// the ones that exist as directories.
func existingDirs(base string, candidates ...string) []string {
	var out []string
	for _, candidate := range candidates {
		path := filepath.Join(base, filepath.FromSlash(candidate))
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func prefixJoin(prefix string, dirs []string, sep string) string {
	flags := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		flags = append(flags, prefix+dir)
	}
	return strings.Join(flags, sep)
}
