package recipe

import (
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the recipe YAML file at path. Parse failures are
// returned unwrapped; callers that need the RecipeInvalidError taxonomy
// variant (spec.md §7) wrap the result themselves, since that type lives
// in the root package to avoid an import cycle.
func Load(path string) (*Recipe, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open recipe file: %w", err)
	}

	var r Recipe
	if err := yaml.Unmarshal(contents, &r); err != nil {
		return nil, xerrors.Errorf("failed to parse recipe file %s: %w", path, err)
	}
	return &r, nil
}
