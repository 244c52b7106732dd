// Package cache manages the dependency cache shared between pipeline runs.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crossship/crossship/internal/matrix"
	"github.com/crossship/crossship/pkg/xos"
)

// Cache is the persisted dependency cache. Each matrix entry gets its own
// subtree keyed by target triple, so concurrent entries never contend.
type Cache struct {
	// Dir is the cache root.
	Dir string
}

// New creates a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

// EntryDir returns the cache subtree for one matrix entry.
func (c *Cache) EntryDir(entry matrix.Entry) string {
	return filepath.Join(c.Dir, entry.TargetTriple)
}

// Prepare ensures the entry's cache subtree exists before its stages run.
func (c *Cache) Prepare(entry matrix.Entry) error {
	if err := os.MkdirAll(c.EntryDir(entry), 0755); err != nil {
		return fmt.Errorf("failed to prepare cache for %s: %w", entry.TargetTriple, err)
	}
	return nil
}

// RepairPermissions makes the entry's cache subtree world-readable so the
// hosting environment can persist it between runs. Toolchain installers
// drop root-owned, unreadable files into the cache; without this repair
// the next run cannot restore it.
func (c *Cache) RepairPermissions(entry matrix.Entry) error {
	root := c.EntryDir(entry)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		mode := info.Mode().Perm()
		if info.IsDir() {
			// Directories additionally need o+x to be traversable.
			if mode&0o005 != 0o005 {
				return os.Chmod(path, mode|0o005)
			}
			return nil
		}
		if mode&0o004 == 0 {
			return os.Chmod(path, mode|0o004)
		}
		return nil
	})
}

// Stamp records that an entry populated its cache on the given channel.
// The stamp file is written atomically; the cache itself is append-mostly
// and needs no cross-entry locking.
func (c *Cache) Stamp(entry matrix.Entry, channel string) error {
	stamp := fmt.Sprintf("target=%s\nchannel=%s\nupdated=%s\n",
		entry.TargetTriple, channel, time.Now().UTC().Format(time.RFC3339))
	path := filepath.Join(c.EntryDir(entry), ".crossship-stamp")
	return xos.WriteFile(path, []byte(stamp), 0644)
}
