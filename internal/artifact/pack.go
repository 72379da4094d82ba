package artifact

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// packTree writes a gzip-compressed tar stream to outPath. Each entry in
// roots is tarred with its contents placed at prefix inside the archive
// ("" for the archive root); this is the archive/tar+pgzip equivalent of
// spec.md §4.6's "tar -czf <out> -C <destdir> . -C <workspace>
// pax-metadata" two-root invocation.
func packTree(outPath string, roots []treeRoot) (err error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return xerrors.Errorf("failed to create output directory %s: %w", filepath.Dir(outPath), err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return xerrors.Errorf("failed to create archive %s: %w", outPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	gz, err := pgzip.NewWriterLevel(out, pgzip.DefaultCompression)
	if err != nil {
		return xerrors.Errorf("failed to initialize gzip writer: %w", err)
	}
	defer func() {
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	}()

	tw := tar.NewWriter(gz)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	for _, root := range roots {
		if err := addTree(tw, root.dir, root.prefix); err != nil {
			return err
		}
	}
	return nil
}

// treeRoot names a filesystem subtree to mirror into an archive at prefix.
type treeRoot struct {
	dir    string
	prefix string
}

func addTree(tw *tar.Writer, root, prefix string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return xerrors.Errorf("%s is not a directory", root)
	}

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := prefix
		if relative != "." {
			if name != "" {
				name += "/"
			}
			name += filepath.ToSlash(relative)
		}
		if name == "" {
			return nil // archive root itself needs no tar header
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}

		if fi.Mode()&os.ModeSymlink != 0 {
			return addSymlink(tw, path, name, fi)
		}
		if entry.IsDir() {
			return addDirHeader(tw, name, fi)
		}
		return addFile(tw, path, name, fi)
	})
}

func addDirHeader(tw *tar.Writer, name string, fi fs.FileInfo) error {
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name + "/"
	return tw.WriteHeader(hdr)
}

func addSymlink(tw *tar.Writer, path, name string, fi fs.FileInfo) error {
	target, err := os.Readlink(path)
	if err != nil {
		return xerrors.Errorf("failed to read symlink %s: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(fi, target)
	if err != nil {
		return err
	}
	hdr.Name = name
	return tw.WriteHeader(hdr)
}

func addFile(tw *tar.Writer, path, name string, fi fs.FileInfo) error {
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return xerrors.Errorf("failed to write %s into archive: %w", path, err)
	}
	return nil
}
