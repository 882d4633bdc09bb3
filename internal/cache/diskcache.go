// Package cache keeps transcoded WAV files on disk so repeated
// uploads of the same source skip the ffmpeg round trip. Entries are
// keyed by source identity (path, size, mtime) and evicted oldest
// first once the directory exceeds its size cap.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Entry is one cached file.
type Entry struct {
	Key     string
	Path    string
	Size    int64
	element *list.Element
}

// DiskCache is an LRU disk cache persistent across runs.
type DiskCache struct {
	mu          sync.Mutex
	cacheDir    string
	maxSize     int64
	currentSize int64

	entries map[string]*Entry
	lru     *list.List
}

// New opens (creating if needed) a cache directory and loads whatever
// it already holds.
func New(cacheDir string, maxSizeBytes int64) (*DiskCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &DiskCache{
		cacheDir: cacheDir,
		maxSize:  maxSizeBytes,
		entries:  make(map[string]*Entry),
		lru:      list.New(),
	}
	if err := c.scan(); err != nil {
		return nil, fmt.Errorf("failed to scan cache: %w", err)
	}
	return c, nil
}

func (c *DiskCache) scan() error {
	return filepath.Walk(c.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if filepath.Ext(path) == ".tmp" {
			return nil
		}
		entry := &Entry{
			Key:  filepath.Base(path),
			Path: path,
			Size: info.Size(),
		}
		entry.element = c.lru.PushBack(entry)
		c.entries[entry.Key] = entry
		c.currentSize += info.Size()
		return nil
	})
}

// SourceKey derives the cache key of a source file from its path and
// current stat identity, so edits to the source invalidate naturally.
func SourceKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat source: %w", err)
	}
	raw := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:]), nil
}

func (c *DiskCache) pathForKey(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}

// Get returns the cached file path for key and refreshes its LRU slot.
func (c *DiskCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key+".wav"]
	if !ok {
		return "", false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		// Disappeared underneath us; drop the entry.
		c.removeLocked(entry)
		return "", false
	}
	c.lru.MoveToBack(entry.element)
	return entry.Path, true
}

// Ensure returns the cached path for key, producing it with fill when
// absent. fill writes the file at the destination path it is given.
func (c *DiskCache) Ensure(key string, fill func(dest string) error) (string, error) {
	if path, ok := c.Get(key); ok {
		return path, nil
	}

	dest := c.pathForKey(key)
	tmp := dest + ".tmp"
	if err := fill(tmp); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to commit cache entry: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return "", fmt.Errorf("failed to stat cache entry: %w", err)
	}

	c.mu.Lock()
	entry := &Entry{
		Key:  filepath.Base(dest),
		Path: dest,
		Size: info.Size(),
	}
	entry.element = c.lru.PushBack(entry)
	c.entries[entry.Key] = entry
	c.currentSize += entry.Size
	c.evictLocked()
	c.mu.Unlock()

	return dest, nil
}

// evictLocked drops the oldest entries until the cache fits its cap.
func (c *DiskCache) evictLocked() {
	for c.maxSize > 0 && c.currentSize > c.maxSize {
		front := c.lru.Front()
		if front == nil {
			return
		}
		entry := front.Value.(*Entry)
		logrus.Infof("cache: evicting %s (%d bytes)", entry.Key, entry.Size)
		os.Remove(entry.Path)
		c.removeLocked(entry)
	}
}

func (c *DiskCache) removeLocked(entry *Entry) {
	c.lru.Remove(entry.element)
	delete(c.entries, entry.Key)
	c.currentSize -= entry.Size
}

// Size returns the bytes currently held.
func (c *DiskCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Clear removes every entry.
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	c.entries = make(map[string]*Entry)
	c.lru.Init()
	c.currentSize = 0
	return nil
}
