package testutil

import (
	"io/fs"
	"sync"
)

// CountingFS wraps an fs.FS and counts Open calls per name.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingFS struct {
	fsys  fs.FS
	mu    sync.Mutex
	opens map[string]int
}

// NewCountingFS wraps fsys.
func NewCountingFS(fsys fs.FS) *CountingFS {
	return &CountingFS{fsys: fsys, opens: make(map[string]int)}
}

// Open implements fs.FS.
func (c *CountingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return c.fsys.Open(name)
}

// ReadDir implements fs.ReadDirFS so directory listings do not count as
// file reads.
func (c *CountingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(c.fsys, name)
}

// Opens returns how many times name was opened.
func (c *CountingFS) Opens(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}
