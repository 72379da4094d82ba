package artifact

import (
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"golang.org/x/xerrors"
)

// chunkSize is the streaming read size spec.md §4.6 mandates for
// checksumming ("streaming 8 KiB chunks").
const chunkSize = 8192

// ChecksumAndSize streams path in 8 KiB chunks through a SHA-256 digester,
// returning its content-addressable digest and byte size (spec.md §4.6
// "Post-conditions"). digest.Digest.Encoded() yields the bare hex string
// spec.md §8 tests against.
func ChecksumAndSize(path string) (digest.Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, xerrors.Errorf("failed to open %s for checksumming: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, xerrors.Errorf("failed to stat %s: %w", path, err)
	}

	digester := digest.SHA256.Digester()
	buf := make([]byte, chunkSize)
	// Hide *os.File's WriteTo so io.CopyBuffer actually reads through buf.
	if _, err := io.CopyBuffer(digester.Hash(), struct{ io.Reader }{f}, buf); err != nil {
		return "", 0, xerrors.Errorf("failed to checksum %s: %w", path, err)
	}

	return digester.Digest(), info.Size(), nil
}
