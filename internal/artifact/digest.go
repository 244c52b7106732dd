package artifact

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/crossship/crossship/pkg/xos"
)

// DigestFile returns the hex-encoded BLAKE3 digest of the file contents.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteDigestManifest writes a checksum manifest for the given files, one
// "digest  filename" line per file, in coreutils checksum format. The
// manifest is written atomically so a crashed run never leaves a torn file.
func WriteDigestManifest(manifestPath string, files []string) error {
	var b strings.Builder
	for _, file := range files {
		digest, err := DigestFile(file)
		if err != nil {
			return fmt.Errorf("failed to digest %s: %w", file, err)
		}
		fmt.Fprintf(&b, "%s  %s\n", digest, filepath.Base(file))
	}

	return xos.WriteFile(manifestPath, []byte(b.String()), 0644)
}
