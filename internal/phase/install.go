package phase

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"

	"github.com/oreonproject/paxbuilder/internal/recipe"
)

// RunInstall dispatches on install.install_method (spec.md §4.5):
//   - CopyFiles: mirror each file mapping into destdir, applying
//     permissions when given.
//   - RunCommands / ExtractArchive / Custom: ensure install_directories
//     exist under destdir, then run install_commands identically to
//     build commands, with DESTDIR set in env.
//
// post_install_commands always run after the method-specific path,
// regardless of method.
func RunInstall(install recipe.Install, workingDir, destDir string, env map[string]string, log *BuildLog) error {
	switch install.InstallMethod {
	case recipe.CopyFiles:
		if err := runCopyFiles(install.InstallFiles, workingDir, destDir, log); err != nil {
			return err
		}
	default: // RunCommands, ExtractArchive, Custom
		if err := ensureInstallDirectories(install.InstallDirectories, destDir, log); err != nil {
			return err
		}
		for _, command := range install.InstallCommands {
			if err := RunNarrated("install", command, workingDir, env, log); err != nil {
				return err
			}
		}
	}

	for _, command := range install.PostInstallCommands {
		if err := RunNarrated("post-install", command, destDir, env, log); err != nil {
			return err
		}
	}
	return nil
}

func ensureInstallDirectories(dirs []string, destDir string, log *BuildLog) error {
	for _, dir := range dirs {
		path := filepath.Join(destDir, stripLeadingSlash(dir))
		log.narrate("Ensuring directory exists: %s", path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return xerrors.Errorf("failed to create install directory %s: %w", path, err)
		}
	}
	return nil
}

func runCopyFiles(mappings []recipe.FileMapping, workingDir, destDir string, log *BuildLog) error {
	for _, mapping := range mappings {
		src := filepath.Join(workingDir, mapping.Source)
		dst := filepath.Join(destDir, stripLeadingSlash(mapping.Destination))
		log.narrate("Copying %s -> %s", src, dst)

		info, err := os.Stat(src)
		if err != nil {
			return xerrors.Errorf("failed to stat install source %s: %w", src, err)
		}

		if info.IsDir() {
			if err := copyDirectory(src, dst); err != nil {
				return err
			}
		} else {
			if err := copyFile(src, dst, info.Mode()); err != nil {
				return err
			}
		}

		if mapping.Permissions != nil {
			if err := os.Chmod(dst, fs.FileMode(*mapping.Permissions)); err != nil {
				return xerrors.Errorf("failed to set permissions on %s: %w", dst, err)
			}
		}
	}
	return nil
}

func stripLeadingSlash(p string) string { return strings.TrimPrefix(p, "/") }

// copyDirectory mirrors src into dst recursively, creating parent
// directories as needed (spec.md §4.5 CopyFiles).
func copyDirectory(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return xerrors.Errorf("failed to create directory %s: %w", filepath.Dir(dst), err)
	}
	in, err := os.Open(src)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return xerrors.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return xerrors.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
