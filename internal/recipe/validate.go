package recipe

// Validate returns the list of violation strings for r (spec.md §3, §8).
// An empty slice means r is valid. Validation is pure: it never touches
// the filesystem or has any other side effect.
func Validate(r *Recipe) []string {
	var violations []string

	if r.Name == "" {
		violations = append(violations, "Package name is required")
	}
	if r.Version == "" {
		violations = append(violations, "Package version is required")
	}
	if r.Description == "" {
		violations = append(violations, "Package description is required")
	}
	if r.Author == "" {
		violations = append(violations, "Package author is required")
	}
	if len(r.Build.BuildCommands) == 0 {
		violations = append(violations, "At least one build command is required")
	}

	switch r.Install.InstallMethod {
	case CopyFiles:
		if len(r.Install.InstallFiles) == 0 {
			violations = append(violations, "Install files are required for CopyFiles method")
		}
	case RunCommands:
		if len(r.Install.InstallCommands) == 0 {
			violations = append(violations, "Install commands are required for RunCommands method")
		}
	}

	return violations
}
