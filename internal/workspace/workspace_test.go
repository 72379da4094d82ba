package workspace

import (
	"os"
	"strings"
	"testing"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

func TestDefaultRootsOutputPrecedence(t *testing.T) {
	env := paxbuilder.HostEnv{"PAX_RESULTS_ROOT": "/tmp/results-root"}
	roots := DefaultRoots(env)
	if roots.Output != "/tmp/results-root" {
		t.Errorf("Output = %q, want /tmp/results-root", roots.Output)
	}
}

func TestDefaultRootsProjectRootFallback(t *testing.T) {
	env := paxbuilder.HostEnv{"PAX_BUILDER_PROJECT_ROOT": "/srv/project"}
	roots := DefaultRoots(env)
	want := "/srv/project/results"
	if roots.Output != want {
		t.Errorf("Output = %q, want %q", roots.Output, want)
	}
}

func TestNewWorkspaceNaming(t *testing.T) {
	tmp := t.TempDir()
	roots := Roots{Build: tmp}
	ws, err := New(roots, "hello world", "1.0.0")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(ws.Dir); err != nil {
		t.Fatalf("workspace dir not created: %v", err)
	}
	base := strings.TrimPrefix(ws.Dir, tmp+string(os.PathSeparator))
	if !strings.HasPrefix(base, "hello_world-1.0.0-") {
		t.Errorf("workspace dir name = %q, want prefix hello_world-1.0.0-", base)
	}
}

func TestCleanupRespectsKeep(t *testing.T) {
	tmp := t.TempDir()
	roots := Roots{Build: tmp}
	ws, err := New(roots, "pkg", "1.0")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ws.Cleanup(true)
	if _, err := os.Stat(ws.Dir); err != nil {
		t.Errorf("workspace removed despite keep=true: %v", err)
	}
	ws.Cleanup(false)
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("workspace still present after keep=false cleanup")
	}
}

func TestKeepWorkspaceEnvValues(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "True"} {
		if !KeepWorkspace(paxbuilder.HostEnv{"PAX_BUILDER_KEEP_WORKSPACE": v}) {
			t.Errorf("KeepWorkspace(%q) = false, want true", v)
		}
	}
	if KeepWorkspace(paxbuilder.HostEnv{}) {
		t.Error("KeepWorkspace(unset) = true, want false")
	}
}
