package phase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oreonproject/paxbuilder/internal/recipe"
)

func TestRunInstallCopyFiles(t *testing.T) {
	workDir := t.TempDir()
	destDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(workDir, "widget"), []byte("binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	mode := uint32(0o644)
	install := recipe.Install{
		InstallMethod: recipe.CopyFiles,
		InstallFiles: []recipe.FileMapping{
			{Source: "widget", Destination: "/usr/bin/widget", Permissions: &mode},
		},
	}

	var log BuildLog
	if err := RunInstall(install, workDir, destDir, nil, &log); err != nil {
		t.Fatalf("RunInstall() error: %v", err)
	}

	installed := filepath.Join(destDir, "usr", "bin", "widget")
	info, err := os.Stat(installed)
	if err != nil {
		t.Fatalf("installed file missing: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestRunInstallCopyDirectory(t *testing.T) {
	workDir := t.TempDir()
	destDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(workDir, "share", "doc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "share", "doc", "readme.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	install := recipe.Install{
		InstallMethod: recipe.CopyFiles,
		InstallFiles: []recipe.FileMapping{
			{Source: "share", Destination: "/usr/share"},
		},
	}

	var log BuildLog
	if err := RunInstall(install, workDir, destDir, nil, &log); err != nil {
		t.Fatalf("RunInstall() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "usr", "share", "doc", "readme.txt")); err != nil {
		t.Errorf("expected nested file to be copied: %v", err)
	}
}

func TestRunInstallRunCommandsCreatesDirectoriesFirst(t *testing.T) {
	workDir := t.TempDir()
	destDir := t.TempDir()

	install := recipe.Install{
		InstallMethod:      recipe.RunCommands,
		InstallDirectories: []string{"/etc/widget"},
		InstallCommands:    []string{"touch " + filepath.Join(destDir, "etc", "widget", "config")},
	}

	var log BuildLog
	if err := RunInstall(install, workDir, destDir, map[string]string{}, &log); err != nil {
		t.Fatalf("RunInstall() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "etc", "widget", "config")); err != nil {
		t.Errorf("expected install command to run after directories exist: %v", err)
	}
}

func TestStripLeadingSlash(t *testing.T) {
	if got := stripLeadingSlash("/usr/bin"); got != "usr/bin" {
		t.Errorf("stripLeadingSlash() = %q, want usr/bin", got)
	}
	if got := stripLeadingSlash("usr/bin"); got != "usr/bin" {
		t.Errorf("stripLeadingSlash() = %q, want usr/bin", got)
	}
}
