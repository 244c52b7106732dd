// Package artifact derives deterministic release artifact names and
// produces the archives the publisher uploads.
package artifact

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/crossship/crossship/internal/matrix"
)

// ArchiveExtensions are the recognized archive suffixes an artifact glob
// may expand to. Both may exist for the same logical artifact; the full
// expansion is the artifact set.
var ArchiveExtensions = []string{".tar.gz", ".zip"}

// Artifact describes one entry's packaged release output as a glob over
// the recognized archive extensions.
type Artifact struct {
	// PathPattern is a glob matching every archive for this entry.
	PathPattern string
	// CrateName is the artifact name root.
	CrateName string
	// Tag is the release tag the artifact belongs to.
	Tag string
	// TargetLabel is the entry's nice name, or its triple when no nice
	// name is configured.
	TargetLabel string
}

// Name returns the deterministic artifact base name:
// {crate}-{tag}-{label}, without an extension.
func Name(crateName, tag, label string) string {
	return fmt.Sprintf("%s-%s-%s", crateName, tag, label)
}

// Expand resolves the glob to the concrete archive files on disk.
// Only recognized archive extensions are returned, so checksum manifests
// and other siblings never leak into the upload set.
func (a Artifact) Expand() ([]string, error) {
	matches, err := filepath.Glob(a.PathPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact pattern %q: %w", a.PathPattern, err)
	}

	var files []string
	for _, m := range matches {
		if hasArchiveExtension(m) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func hasArchiveExtension(path string) bool {
	for _, ext := range ArchiveExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Packager derives artifact descriptions and, when the pipeline carries no
// packaging script, produces tar.gz archives itself.
type Packager struct {
	// OutDir is the directory packaged archives land in.
	OutDir string
}

// NewPackager creates a packager writing into outDir.
func NewPackager(outDir string) *Packager {
	return &Packager{OutDir: outDir}
}

// Describe returns the artifact an entry is expected to produce for the
// given tag, without touching the filesystem.
func (p *Packager) Describe(entry matrix.Entry, tag, crateName string) Artifact {
	name := Name(crateName, tag, entry.Label())
	return Artifact{
		PathPattern: filepath.Join(p.OutDir, name+".*"),
		CrateName:   crateName,
		Tag:         tag,
		TargetLabel: entry.Label(),
	}
}

// Package archives the contents of stagingDir into a tar.gz named by the
// deterministic rule and writes a digest manifest next to it. This is the
// built-in fallback used when no before_deploy script is configured.
func (p *Packager) Package(entry matrix.Entry, tag, crateName, stagingDir string) (Artifact, error) {
	art := p.Describe(entry, tag, crateName)

	if err := os.MkdirAll(p.OutDir, 0755); err != nil {
		return art, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	name := Name(crateName, tag, entry.Label())
	archivePath := filepath.Join(p.OutDir, name+".tar.gz")
	if err := writeTarGz(archivePath, stagingDir); err != nil {
		return art, fmt.Errorf("failed to archive %s: %w", stagingDir, err)
	}

	files, err := art.Expand()
	if err != nil {
		return art, err
	}
	manifestPath := filepath.Join(p.OutDir, name+".b3sums")
	if err := WriteDigestManifest(manifestPath, files); err != nil {
		return art, fmt.Errorf("failed to write digest manifest: %w", err)
	}

	return art, nil
}

// writeTarGz archives every regular file under root into a gzip-compressed
// tarball with paths relative to root.
func writeTarGz(archivePath, root string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}
