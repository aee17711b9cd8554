// Package checksum memoizes SHA-256 digests of disk images in a Badger
// store keyed by absolute path. Hashing a multi-gigabyte image costs far
// more than a stat, so entries are revalidated by file size and
// modification time and rehashed only when the file changed.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/jamesainslie/etch/pkg/etch/logging"
	"github.com/jamesainslie/etch/pkg/etch/types"
)

// Cache provides digest lookups backed by a persistent store.
type Cache struct {
	store *Store
	path  string
	log   *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache contents and effectiveness for the current process.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// Open opens or creates a digest cache at path, recovering from a LOCK
// file left behind by a crashed process.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil && isLockError(err) && removeStaleLock(path) {
		store, err = OpenStore(path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening checksum store: %w", err)
	}

	return &Cache{
		store: store,
		path:  path,
		log:   logging.Get("checksum"),
	}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Path returns the store directory.
func (c *Cache) Path() string {
	return c.path
}

// SumFile returns the hex SHA-256 of the file at path, consulting the
// cache first. Entries whose size or mtime no longer match are rehashed.
func (c *Cache) SumFile(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}

	if entry, err := c.store.Get(abs); err == nil && entry.Valid(info.Size(), info.ModTime().UnixNano()) {
		c.hits.Add(1)
		c.log.Debug("digest cache hit", "path", abs)
		return entry.Digest, nil
	}
	c.misses.Add(1)

	digest, err := hashFile(ctx, abs)
	if err != nil {
		return "", err
	}

	entry := &Entry{
		Digest: digest,
		Size:   info.Size(),
		Mtime:  info.ModTime().UnixNano(),
	}
	if err := c.store.Put(abs, entry); err != nil {
		// A failed write degrades the cache, not the answer.
		c.log.Warn("failed to store digest", "path", abs, "error", err)
	}

	return digest, nil
}

// Invalidate drops the stored digest for a path.
func (c *Cache) Invalidate(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	return c.store.Delete(abs)
}

// Clear removes all stored digests.
func (c *Cache) Clear() error {
	return c.store.Clear()
}

// Stats returns hit/miss counters and the number of stored digests.
func (c *Cache) Stats() (Stats, error) {
	entries, err := c.store.Count()
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}, nil
}

// hashFile computes the hex SHA-256 of a file, honoring cancellation
// between blocks.
func hashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 1*types.MiB)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
