package depbuild

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

type stubLocator struct {
	path string
	ok   bool
}

func (s stubLocator) Locate(string) (string, bool) { return s.path, s.ok }

type stubRebuilder struct {
	artifacts []string
	err       error
	calls     int
}

func (s *stubRebuilder) BuildDependencyArtifacts(string) ([]string, error) {
	s.calls++
	return s.artifacts, s.err
}

func TestBuildDependencySkipsNonDevelNames(t *testing.T) {
	rebuild := &stubRebuilder{}
	cache := NewCache()
	visited := map[string]bool{}

	err := BuildDependency(Request{Name: "curl"}, stubLocator{}, rebuild, cache, visited, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rebuild.calls != 0 {
		t.Errorf("expected no sub-build for a runtime-style dependency name, got %d calls", rebuild.calls)
	}
}

func TestBuildDependencyRefusesSelf(t *testing.T) {
	rebuild := &stubRebuilder{}
	cache := NewCache()
	visited := map[string]bool{}

	req := Request{Name: "libx-devel", DependerName: paxbuilder.Normalize("libx-devel")}
	if err := BuildDependency(req, stubLocator{}, rebuild, cache, visited, t.TempDir(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rebuild.calls != 0 {
		t.Errorf("expected no sub-build for a self-referential dependency, got %d calls", rebuild.calls)
	}
}

func TestBuildDependencySkipsSecondVisit(t *testing.T) {
	rebuild := &stubRebuilder{artifacts: nil}
	cache := NewCache()
	visited := map[string]bool{paxbuilder.Normalize("libx-devel"): true}

	if err := BuildDependency(Request{Name: "libx-devel"}, stubLocator{}, rebuild, cache, visited, t.TempDir(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rebuild.calls != 0 {
		t.Errorf("expected no sub-build on second visit, got %d calls", rebuild.calls)
	}
}

func TestBuildDependencyMissingRecipe(t *testing.T) {
	rebuild := &stubRebuilder{}
	cache := NewCache()
	visited := map[string]bool{}

	err := BuildDependency(Request{Name: "libx-devel"}, stubLocator{ok: false}, rebuild, cache, visited, t.TempDir(), nil)
	var missing *paxbuilder.DependencyRecipeMissingError
	if err == nil {
		t.Fatal("expected DependencyRecipeMissingError")
	}
	if !errors.As(err, &missing) {
		t.Errorf("error = %v, want *DependencyRecipeMissingError", err)
	}
}

func TestExpectedArtifactCacheKeyUsesLabelNotTriple(t *testing.T) {
	got := ExpectedArtifactCacheKey("libx-devel", "1.2.3", paxbuilder.Aarch64)
	if got != "libx-devel-1.2.3-aarch64.pax" {
		t.Errorf("ExpectedArtifactCacheKey() = %q, want libx-devel-1.2.3-aarch64.pax", got)
	}
	// x86_64_v1/v2/v3 share a triple but must not collapse onto the same
	// cache entry.
	v1 := ExpectedArtifactCacheKey("libx-devel", "1.2.3", paxbuilder.X86_64v1)
	v3 := ExpectedArtifactCacheKey("libx-devel", "1.2.3", paxbuilder.X86_64v3)
	if v1 == v3 {
		t.Errorf("ExpectedArtifactCacheKey() collapsed x86_64_v1 and x86_64_v3 onto %q", v1)
	}
}

func TestLookupArtifactCacheHit(t *testing.T) {
	depDir := t.TempDir()
	recipePath := filepath.Join(depDir, "recipe.yaml")
	if err := os.WriteFile(recipePath, []byte("name: libx\nversion: 1.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cacheDir := t.TempDir()
	artifactPath := filepath.Join(cacheDir, "libx-1.0.0-x86_64.pax")
	if err := os.WriteFile(artifactPath, []byte("pax"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := Request{ArtifactCacheDir: cacheDir, Target: paxbuilder.X86_64}
	got, ok := lookupArtifactCache(req, recipePath)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != artifactPath {
		t.Errorf("lookupArtifactCache() = %q, want %q", got, artifactPath)
	}
}

func TestLookupArtifactCacheMiss(t *testing.T) {
	depDir := t.TempDir()
	recipePath := filepath.Join(depDir, "recipe.yaml")
	if err := os.WriteFile(recipePath, []byte("name: libx\nversion: 1.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := Request{ArtifactCacheDir: t.TempDir(), Target: paxbuilder.X86_64}
	if _, ok := lookupArtifactCache(req, recipePath); ok {
		t.Error("expected cache miss when no artifact is present")
	}
}

func TestExtractAllInvalidArtifactErrors(t *testing.T) {
	dest := t.TempDir()
	missing := filepath.Join(dest, "does-not-exist.pax")
	if err := extractAll([]string{missing}, dest); err == nil {
		t.Error("expected extractAll to fail for a missing artifact")
	}
}

func TestDepLogNilSafe(t *testing.T) {
	var log *DepLog
	log.Logf("should not panic: %d", 1)
}

func TestDepLogWritesThrough(t *testing.T) {
	var captured string
	log := &DepLog{Write: func(s string) { captured = s }}
	log.Logf("hello %s", "world")
	if captured != "hello world" {
		t.Errorf("captured = %q, want %q", captured, "hello world")
	}
}
