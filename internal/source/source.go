// Package source implements source acquisition (spec.md §4.3): mirror
// fallback download, archive extraction, and source-root discovery.
package source

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

// fetchTimeout bounds the total HTTP GET for a source archive (spec.md §4.3).
const fetchTimeout = 600 * time.Second

// Preparation is the result of preparing a recipe's source material.
type Preparation struct {
	// SourceDir is the directory the build phases treat as the source
	// root.
	SourceDir string
	// ArchivePath is the downloaded archive, or "" if no source URL was
	// declared (the workspace itself is then treated as the source dir).
	ArchivePath string
}

// Prepare downloads (with mirror fallback), extracts, and locates the
// source root for sourceURL inside workspace, narrating progress into log.
// An empty sourceURL is a documented no-op (spec.md §4.3).
func Prepare(sourceURL, workspaceDir string, log io.Writer) (*Preparation, error) {
	if strings.TrimSpace(sourceURL) == "" {
		io.WriteString(log, "No source URL defined, skipping download step\n")
		return &Preparation{SourceDir: workspaceDir}, nil
	}

	io.WriteString(log, "Downloading source from "+sourceURL+"\n")

	archiveName := path.Base(sourceURL)
	if archiveName == "" || archiveName == "." || archiveName == "/" {
		return nil, xerrors.New("unable to determine source archive name")
	}
	archivePath := filepath.Join(workspaceDir, archiveName)

	if err := download(sourceURL, archivePath); err != nil {
		return nil, &paxbuilder.SourceUnavailableError{URL: sourceURL, Cause: err}
	}

	sourceDir, err := extract(archivePath, workspaceDir, log)
	if err != nil {
		return nil, err
	}

	return &Preparation{SourceDir: sourceDir, ArchivePath: archivePath}, nil
}

// download attempts every mirror candidate for rawURL in order, the first
// HTTP 2xx response wins (spec.md §4.3).
func download(rawURL, destination string) error {
	return downloadCandidates(candidateURLs(rawURL), destination)
}

func downloadCandidates(candidates []string, destination string) error {
	var lastErr error
	for _, candidate := range candidates {
		if err := fetch(candidate, destination); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = xerrors.New("no candidate URLs")
	}
	return lastErr
}

var gnuFTPPattern = regexp.MustCompile(`://ftp\.gnu\.org/gnu/(.+)$`)
var githubTagArchivePattern = regexp.MustCompile(`^https://github\.com/([^/]+/[^/]+)/archive/refs/tags/(.+)$`)

// candidateURLs builds the mirror candidate list for original (spec.md
// §4.3): the original URL always first, then GNU and GitHub mirrors when
// the URL shape matches, deduplicated while preserving order.
func candidateURLs(original string) []string {
	urls := []string{original}

	if m := gnuFTPPattern.FindStringSubmatch(original); m != nil {
		gnuPath := m[1]
		urls = append(urls,
			"https://ftpmirror.gnu.org/"+gnuPath,
			"https://mirrors.kernel.org/gnu/"+gnuPath,
		)
	}

	if m := githubTagArchivePattern.FindStringSubmatch(original); m != nil {
		repo, suffix := m[1], m[2]
		urls = append(urls, "https://codeload.github.com/"+repo+"/tar.gz/refs/tags/"+suffix)
	}

	return dedupe(urls)
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func fetch(rawURL, destination string) error {
	if _, err := url.Parse(rawURL); err != nil {
		return xerrors.Errorf("invalid URL %s: %w", rawURL, err)
	}

	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Get(rawURL)
	if err != nil {
		return xerrors.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return xerrors.Errorf("failed to download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	pending, err := renameio.TempFile("", destination)
	if err != nil {
		return xerrors.Errorf("failed to stage archive %s: %w", destination, err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, resp.Body); err != nil {
		return xerrors.Errorf("failed to read response body for %s: %w", rawURL, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("failed to write archive %s: %w", destination, err)
	}
	return nil
}

// extract invokes tar -xf to unpack archive into workspaceDir and returns
// the first subdirectory that appears (spec.md §4.3).
func extract(archive, workspaceDir string, log io.Writer) (string, error) {
	io.WriteString(log, "Extracting archive "+archive+" into "+workspaceDir+"\n")

	cmd := exec.Command("tar", "-xf", archive, "-C", workspaceDir)
	cmd.Stdout = log
	cmd.Stderr = log
	if err := cmd.Run(); err != nil {
		return "", xerrors.Errorf("failed to extract archive %s: %w", archive, err)
	}

	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		return "", xerrors.Errorf("failed to read workspace %s: %w", workspaceDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return filepath.Join(workspaceDir, entry.Name()), nil
		}
	}
	return "", &paxbuilder.SourceLayoutUnknownError{Workspace: workspaceDir}
}
