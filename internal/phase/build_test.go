package phase

import (
	"strings"
	"testing"
)

func TestWorkingDir(t *testing.T) {
	tests := []struct {
		name       string
		sourceDir  string
		configured string
		want       string
	}{
		{"unset falls back to source dir", "/ws/src", "", "/ws/src"},
		{"relative subdirectory", "/ws/src", "build", "/ws/src/build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkingDir(tt.sourceDir, tt.configured); got != tt.want {
				t.Errorf("WorkingDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunBuildCommandsStopsOnFirstFailure(t *testing.T) {
	var log BuildLog
	env := map[string]string{}

	commands := []string{
		"echo first",
		"false",
		"echo third",
	}
	if err := RunBuildCommands(commands, t.TempDir(), env, &log); err == nil {
		t.Fatal("expected error from failing build command")
	}
	if strings.Contains(log.String(), "echo third") {
		t.Errorf("command after the failing one ran; build log:\n%s", log.String())
	}
}
