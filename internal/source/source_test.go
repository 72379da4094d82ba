package source

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCandidateURLsGNUMirrorFallback(t *testing.T) {
	got := candidateURLs("https://ftp.gnu.org/gnu/hello/hello-2.12.1.tar.gz")
	want := []string{
		"https://ftp.gnu.org/gnu/hello/hello-2.12.1.tar.gz",
		"https://ftpmirror.gnu.org/hello/hello-2.12.1.tar.gz",
		"https://mirrors.kernel.org/gnu/hello/hello-2.12.1.tar.gz",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidateURLs() mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidateURLsGitHubTagArchive(t *testing.T) {
	got := candidateURLs("https://github.com/acme/widget/archive/refs/tags/v1.2.3.tar.gz")
	want := []string{
		"https://github.com/acme/widget/archive/refs/tags/v1.2.3.tar.gz",
		"https://codeload.github.com/acme/widget/tar.gz/refs/tags/v1.2.3.tar.gz",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidateURLs() mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidateURLsUnrelatedDeduped(t *testing.T) {
	got := candidateURLs("https://example.com/pkg.tar.gz")
	want := []string{"https://example.com/pkg.tar.gz"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidateURLs() mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloadFallsBackToNextCandidate(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer primary.Close()
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive contents"))
	}))
	defer mirror.Close()

	destination := filepath.Join(t.TempDir(), "hello-2.12.1.tar.gz")
	candidates := []string{primary.URL + "/hello-2.12.1.tar.gz", mirror.URL + "/hello-2.12.1.tar.gz"}
	if err := downloadCandidates(candidates, destination); err != nil {
		t.Fatalf("downloadCandidates() error: %v", err)
	}

	got, err := os.ReadFile(destination)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "archive contents" {
		t.Errorf("downloaded contents = %q, want from mirror", got)
	}
}

func TestDownloadAllCandidatesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	destination := filepath.Join(t.TempDir(), "pkg.tar.gz")
	err := downloadCandidates([]string{srv.URL + "/a", srv.URL + "/b"}, destination)
	if err == nil {
		t.Fatal("expected error when every candidate fails")
	}
	if _, statErr := os.Stat(destination); !os.IsNotExist(statErr) {
		t.Errorf("no archive should have been written, stat err = %v", statErr)
	}
}

func TestPrepareNoSourceURL(t *testing.T) {
	tmp := t.TempDir()
	var log bytes.Buffer
	prep, err := Prepare("", tmp, &log)
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if prep.SourceDir != tmp {
		t.Errorf("SourceDir = %q, want %q", prep.SourceDir, tmp)
	}
	if prep.ArchivePath != "" {
		t.Errorf("ArchivePath = %q, want empty", prep.ArchivePath)
	}
}

func TestExtractNoSubdirectory(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "empty.tar")
	if err := os.WriteFile(archive, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	var log bytes.Buffer
	if _, err := extract(archive, tmp, &log); err == nil {
		t.Error("expected extract() of an archive yielding no subdirectory to fail")
	}
}
