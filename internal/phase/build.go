package phase

import "path/filepath"

// WorkingDir resolves build.working_directory relative to sourceDir, or
// returns sourceDir unchanged when unset (spec.md §4.5).
func WorkingDir(sourceDir, configured string) string {
	if configured == "" {
		return sourceDir
	}
	return filepath.Join(sourceDir, configured)
}

// RunBuildCommands executes each build command in order in workingDir with
// env (spec.md §4.5 "Build phase"). The first failing command aborts and
// returns a *paxbuilder.ShellPhaseFailedError.
func RunBuildCommands(commands []string, workingDir string, env map[string]string, log *BuildLog) error {
	for _, command := range commands {
		if err := RunNarrated("build", command, workingDir, env, log); err != nil {
			return err
		}
	}
	return nil
}
