// Package openfiles implements a fixed-capacity LRU cache of open file
// descriptors, keyed by (torrent id, file index), with preallocation
// policies for newly created files.
package openfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"
	"go.uber.org/zap"
)

// DefaultCapacity is the fixed number of file descriptors the cache holds
// open at once.
const DefaultCapacity = 32

// Prealloc selects the strategy used when creating a new writable file.
type Prealloc int

const (
	// PreallocNone does nothing; the file grows organically as written.
	PreallocNone Prealloc = iota
	// PreallocSparse reserves space sparsely (best-effort).
	PreallocSparse
	// PreallocFull reserves contiguous space and zero-fills it.
	PreallocFull
)

type key struct {
	torrentID uint32
	fileIndex int
}

type entry struct {
	file     *os.File
	writable bool
}

// Cache is a fixed-capacity LRU of open file descriptors. Every exported
// method holds mu, so a Cache may be shared between goroutines.
type Cache struct {
	mu    sync.Mutex
	log   *zap.SugaredLogger
	cache *simplelru.LRU
}

// New creates a Cache with the given capacity.
func New(capacity int, log *zap.SugaredLogger) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{log: log}
	lru, err := simplelru.NewLRU(capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("new lru: %s", err)
	}
	c.cache = lru
	return c, nil
}

func (c *Cache) onEvict(k, v interface{}) {
	e := v.(*entry)
	if err := e.file.Close(); err != nil {
		c.log.Errorf("error closing evicted file descriptor: %s", err)
	}
}

// Get returns the fd for (torrentID, fileIndex), opening it if necessary.
// writable requests read-write access; path is the on-disk location to
// open (and create, if writable); expectedSize truncates an existing file
// that has grown past it.
func (c *Cache) Get(
	torrentID uint32,
	fileIndex int,
	writable bool,
	path string,
	prealloc Prealloc,
	expectedSize int64) (*os.File, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{torrentID, fileIndex}
	if v, ok := c.cache.Get(k); ok {
		e := v.(*entry)
		if !writable || e.writable {
			return e.file, nil
		}
		// Existing entry is read-only but caller wants write access;
		// evict and reopen writable.
		c.cache.Remove(k)
	}

	f, err := c.open(path, writable, prealloc, expectedSize)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, &entry{file: f, writable: writable})
	return f, nil
}

func (c *Cache) open(path string, writable bool, prealloc Prealloc, expectedSize int64) (*os.File, error) {
	if writable {
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			return nil, fmt.Errorf("mkdir parents: %s", err)
		}
	}

	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0666)
	if err != nil {
		return nil, fmt.Errorf("open: %s", err)
	}

	if writable {
		if err := truncateIfLarger(f, expectedSize); err != nil {
			f.Close()
			return nil, err
		}
		if err := preallocate(f, prealloc, expectedSize); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func truncateIfLarger(f *os.File, expectedSize int64) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %s", err)
	}
	if info.Size() > expectedSize {
		return f.Truncate(expectedSize)
	}
	return nil
}

const fullPreallocChunk = 4096

func preallocate(f *os.File, p Prealloc, size int64) error {
	if size <= 0 {
		return nil
	}
	switch p {
	case PreallocNone:
		return nil
	case PreallocSparse:
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat: %s", err)
		}
		if info.Size() >= size {
			return nil
		}
		if _, err := f.WriteAt([]byte{0}, size-1); err != nil {
			return fmt.Errorf("sparse reserve: %s", err)
		}
		return nil
	case PreallocFull:
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat: %s", err)
		}
		zeros := make([]byte, fullPreallocChunk)
		for off := info.Size(); off < size; off += fullPreallocChunk {
			n := int64(fullPreallocChunk)
			if off+n > size {
				n = size - off
			}
			if _, err := f.WriteAt(zeros[:n], off); err != nil {
				return fmt.Errorf("full prealloc: %s", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown prealloc mode: %d", p)
	}
}

// CloseTorrent closes and evicts every cached fd belonging to torrentID,
// flushing writable entries first so their mtime reflects the final write.
func (c *Cache) CloseTorrent(torrentID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range c.cache.Keys() {
		tk := k.(key)
		if tk.torrentID != torrentID {
			continue
		}
		if v, ok := c.cache.Peek(tk); ok {
			e := v.(*entry)
			if e.writable {
				e.file.Sync()
			}
		}
		c.cache.Remove(tk)
	}
}

// Len returns the number of cached file descriptors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
