package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

// TestChecksumHelloWorld is the fixed-vector property spec.md §8 names
// directly: SHA-256 of "Hello, World!".
func TestChecksumHelloWorld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("Hello, World!"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, size, err := ChecksumAndSize(path)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len("Hello, World!")) {
		t.Errorf("size = %d, want %d", size, len("Hello, World!"))
	}

	const want = "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
	if got.Encoded() != want {
		t.Errorf("checksum = %s, want %s", got.Encoded(), want)
	}
}

func TestChecksumLargerThanChunkSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	payload := make([]byte, chunkSize*3+17)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	_, size, err := ChecksumAndSize(path)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", size, len(payload))
	}
}
