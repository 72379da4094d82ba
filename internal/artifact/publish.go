package artifact

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

// Request carries everything package needs to assemble and publish one
// build's two artifacts (spec.md §4.6).
type Request struct {
	Identity Identity

	// RecipePath is the on-disk recipe file, copied into the source
	// artifact under its own basename.
	RecipePath string
	// WorkspaceDir is the per-build workspace; metadata.yaml/json and
	// pax-metadata/ are staged here transiently.
	WorkspaceDir string
	// DestDir is the staged install tree packaged into the binary artifact.
	DestDir string
	// SourceDir is the extracted (or workspace-as-source) source root,
	// copied into the source artifact when ArchivePath is empty.
	SourceDir string
	// ArchivePath is the downloaded upstream archive, or "" if the
	// recipe declared no source URL.
	ArchivePath string
	// SourceURL is recorded into the metadata document.
	SourceURL string

	OutputRoot    string
	JobResultsDir string // PAX_JOB_RESULTS_DIR, optional
	ResultsMirror string // PAX_RESULTS_MIRROR, optional
}

// Result names the two published artifacts (spec.md §3 "Built-package
// descriptor").
type Result struct {
	BinaryPath string
	SourcePath string
}

// Package assembles, publishes, and returns the paths of the binary and
// source artifacts for req (spec.md §4.6). It is the sole entry point
// the root Builder calls for C6.
func Package(req Request) (Result, error) {
	metadataYAMLPath := filepath.Join(req.WorkspaceDir, "metadata.yaml")
	metadataJSONPath := filepath.Join(req.WorkspaceDir, "metadata.json")
	bundleDir := filepath.Join(req.WorkspaceDir, "pax-metadata")

	metadata := NewMetadata(req.Identity, req.SourceURL)
	if err := stageMetadata(metadata, metadataYAMLPath, metadataJSONPath, bundleDir); err != nil {
		return Result{}, &paxbuilder.PackagingFailedError{Path: req.WorkspaceDir, Cause: err}
	}
	defer cleanupMetadataStaging(metadataYAMLPath, metadataJSONPath, bundleDir)

	outputDir := filepath.Join(append([]string{req.OutputRoot}, req.Identity.OutputSubpath()...)...)

	binaryPath := filepath.Join(outputDir, req.Identity.BinaryFilename())
	log.Printf("packaging binary artifact %s from %s", binaryPath, req.DestDir)
	if err := packTree(binaryPath, []treeRoot{
		{dir: req.DestDir, prefix: ""},
		{dir: bundleDir, prefix: "pax-metadata"},
	}); err != nil {
		return Result{}, &paxbuilder.PackagingFailedError{Path: binaryPath, Cause: err}
	}

	sourcePath := filepath.Join(outputDir, req.Identity.SourceFilename())
	stagingDir := filepath.Join(req.WorkspaceDir, "src-package")
	if err := stageSourcePackage(req, stagingDir, metadataYAMLPath, metadataJSONPath); err != nil {
		return Result{}, &paxbuilder.PackagingFailedError{Path: stagingDir, Cause: err}
	}
	defer os.RemoveAll(stagingDir)

	log.Printf("packaging source artifact %s from %s", sourcePath, stagingDir)
	if err := packTree(sourcePath, []treeRoot{{dir: stagingDir, prefix: ""}}); err != nil {
		return Result{}, &paxbuilder.PackagingFailedError{Path: sourcePath, Cause: err}
	}

	publishSecondary(req.JobResultsDir, "job results", req, metadataYAMLPath, metadataJSONPath, bundleDir, binaryPath, sourcePath)
	publishSecondary(req.ResultsMirror, "mirror", req, metadataYAMLPath, metadataJSONPath, bundleDir, binaryPath, sourcePath)

	return Result{BinaryPath: binaryPath, SourcePath: sourcePath}, nil
}

func stageMetadata(m Metadata, yamlPath, jsonPath, bundleDir string) error {
	yamlDoc, err := m.MarshalYAML()
	if err != nil {
		return err
	}
	jsonDoc, err := m.MarshalJSONPretty()
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(yamlPath, yamlDoc, 0o644); err != nil {
		return xerrors.Errorf("failed to write %s: %w", yamlPath, err)
	}
	if err := renameio.WriteFile(jsonPath, jsonDoc, 0o644); err != nil {
		return xerrors.Errorf("failed to write %s: %w", jsonPath, err)
	}

	if err := os.RemoveAll(bundleDir); err != nil {
		return xerrors.Errorf("failed to reset metadata bundle %s: %w", bundleDir, err)
	}
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return xerrors.Errorf("failed to create metadata bundle %s: %w", bundleDir, err)
	}
	if err := copyFile(yamlPath, filepath.Join(bundleDir, "metadata.yaml")); err != nil {
		return err
	}
	if err := copyFile(jsonPath, filepath.Join(bundleDir, "metadata.json")); err != nil {
		return err
	}
	return nil
}

// cleanupMetadataStaging removes the transient workspace metadata files
// and bundle directory after publication (spec.md §4.6 "Publication").
// Failures are silent, matching the workspace cleanup discipline (spec.md
// §4.2) the rest of this module already follows.
func cleanupMetadataStaging(yamlPath, jsonPath, bundleDir string) {
	os.Remove(yamlPath)
	os.Remove(jsonPath)
	os.RemoveAll(bundleDir)
}

func stageSourcePackage(req Request, stagingDir, metadataYAMLPath, metadataJSONPath string) error {
	if err := os.RemoveAll(stagingDir); err != nil {
		return xerrors.Errorf("failed to reset source staging %s: %w", stagingDir, err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return xerrors.Errorf("failed to create source staging %s: %w", stagingDir, err)
	}

	if err := copyFile(metadataYAMLPath, filepath.Join(stagingDir, "metadata.yaml")); err != nil {
		return err
	}
	if err := copyFile(metadataJSONPath, filepath.Join(stagingDir, "metadata.json")); err != nil {
		return err
	}

	recipeName := filepath.Base(req.RecipePath)
	if recipeName == "" || recipeName == "." {
		recipeName = "recipe.yaml"
	}
	if err := copyFile(req.RecipePath, filepath.Join(stagingDir, recipeName)); err != nil {
		return err
	}

	if req.ArchivePath != "" {
		if err := copyFile(req.ArchivePath, filepath.Join(stagingDir, filepath.Base(req.ArchivePath))); err != nil {
			return err
		}
	} else {
		// When the recipe declared no source URL, SourceDir is the
		// workspace itself (spec.md §4.3), which already contains
		// stagingDir as a subdirectory being populated right now.
		// Exclude it so the walk below can't recurse into its own
		// output.
		if err := copyDirectoryExcluding(req.SourceDir, filepath.Join(stagingDir, "sources"), stagingDir); err != nil {
			return err
		}
	}
	return nil
}

// publishSecondary copies both artifacts and both metadata representations
// into an optional secondary destination (PAX_JOB_RESULTS_DIR or
// PAX_RESULTS_MIRROR). Failures are logged and swallowed, never fatal to
// the primary build (spec.md §4.6, §7).
func publishSecondary(root, label string, req Request, metadataYAMLPath, metadataJSONPath, bundleDir, binaryPath, sourcePath string) {
	if root == "" {
		return
	}
	dir := filepath.Join(append([]string{root}, req.Identity.OutputSubpath()...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("WARNING: failed to create %s artifact directory %s: %v", label, dir, err)
		return
	}

	copyWarn := func(src, dst string) {
		if err := copyFile(src, dst); err != nil {
			log.Printf("WARNING: failed to copy into %s %s: %v", label, dst, err)
		}
	}
	copyWarn(binaryPath, filepath.Join(dir, filepath.Base(binaryPath)))
	copyWarn(sourcePath, filepath.Join(dir, filepath.Base(sourcePath)))
	copyWarn(metadataYAMLPath, filepath.Join(dir, "metadata.yaml"))
	copyWarn(metadataJSONPath, filepath.Join(dir, "metadata.json"))

	metadataDir := filepath.Join(dir, "pax-metadata")
	if err := os.MkdirAll(metadataDir, 0o755); err != nil {
		log.Printf("WARNING: failed to create pax-metadata directory in %s %s: %v", label, metadataDir, err)
		return
	}
	copyWarn(filepath.Join(bundleDir, "metadata.yaml"), filepath.Join(metadataDir, "metadata.yaml"))
	copyWarn(filepath.Join(bundleDir, "metadata.json"), filepath.Join(metadataDir, "metadata.json"))
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return xerrors.Errorf("failed to create directory %s: %w", filepath.Dir(dst), err)
	}
	in, err := os.Open(src)
	if err != nil {
		return xerrors.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return xerrors.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return xerrors.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return xerrors.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// copyDirectoryExcluding mirrors src into dst recursively, skipping the
// exclude subtree entirely when non-empty (see stageSourcePackage).
func copyDirectoryExcluding(src, dst, exclude string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if exclude != "" && path == exclude {
			return filepath.SkipDir
		}
		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
