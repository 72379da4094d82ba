// Package phase implements the phase runner (spec.md §4.5): environment
// composition, build/install command execution, and lifecycle scripts.
package phase

import (
	"sort"
	"strings"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

// BuildEnv composes the environment for build-phase commands: the
// recipe's build.environment wins over the host environment, which is
// filled in for every key the recipe does not already set (spec.md §4.5).
func BuildEnv(recipeEnv map[string]string, host paxbuilder.HostEnv) map[string]string {
	env := make(map[string]string, len(recipeEnv)+len(host))
	for k, v := range recipeEnv {
		env[k] = v
	}
	for k, v := range host {
		if _, ok := env[k]; !ok {
			env[k] = v
		}
	}
	return env
}

// MergeEnv applies the dependency-overlay merge rule (spec.md §4.4, §4.5,
// §9): empty additions are ignored; an absent or empty target key is set
// outright; otherwise the addition is PREPENDED, separated by ':' for
// *_PATH-style keys (containing "PATH" but not "FLAGS") and by a single
// space otherwise. This is the single reducer the design notes call for,
// rather than chained mutation.
func MergeEnv(target map[string]string, additions map[string]string) {
	for key, value := range additions {
		if value == "" {
			continue
		}
		existing, ok := target[key]
		if !ok || existing == "" {
			target[key] = value
			continue
		}
		target[key] = value + separatorFor(key) + existing
	}
}

func separatorFor(key string) string {
	if strings.Contains(key, "PATH") && !strings.Contains(key, "FLAGS") {
		return ":"
	}
	return " "
}

// sortedKeys is used by callers that want deterministic iteration over an
// env map, e.g. envSlice when building a command's environment.
func sortedKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
