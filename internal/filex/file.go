// Package filex manages request-scoped scratch files. Every file is created
// exclusively under one directory with a UUID name, and comes with a release
// func that closes and removes it.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/google/uuid"
)

const namePrefix = "sfs-"

// Scratch is a directory of short-lived staging files.
type Scratch struct {
	dir string
}

// NewScratch ensures dir exists (mode 0700) and returns a Scratch rooted
// there. An empty dir means a "sfs-scratch" directory under os.TempDir.
func NewScratch(dir string) (*Scratch, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "sfs-scratch")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string { return s.dir }

// Create opens a new empty file for reading and writing. The release func
// is safe to call more than once and must be deferred by the caller right
// away.
func (s *Scratch) Create(purpose string) (*os.File, func(), error) {
	name := filepath.Join(s.dir, namePrefix+purpose+"-"+uuid.NewString())

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = f.Close()
			_ = os.Remove(name)
		})
	}

	return f, release, nil
}

// Purge removes scratch files left behind by a previous process (for
// example after a crash) and returns how many it deleted.
func (s *Scratch) Purge() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	var n int
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		err := os.Remove(filepath.Join(s.dir, e.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, err
		}
		if err == nil {
			n++
		}
	}
	return n, nil
}

// Count reports how many scratch files currently exist.
func (s *Scratch) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	var n int
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), namePrefix) {
			n++
		}
	}
	return n, nil
}
