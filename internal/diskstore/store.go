// Package diskstore is the lowest layer of the persistence stack: a
// byte-addressable, append-or-overwrite file with a single mutex
// serializing all I/O, mirroring the source's PageManager but operating at
// record granularity instead of fixed 4KiB pages (see Cache in
// pagecache.go for the optional page-granular decorator).
package diskstore

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Store is a single append/overwrite data file guarded by one mutex. All
// operations are safe for concurrent use; the mutex is the L0 contract's
// "mutual exclusion on the file handle".
type Store struct {
	mu   sync.Mutex
	path string
	f    *os.File
	size int64
}

// Open opens path for read/write, creating it if it does not exist.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diskstore: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("diskstore: stat %s: %w", path, err)
	}
	return &Store{path: path, f: f, size: info.Size()}, nil
}

// Append writes b to the end of the file and returns the raw (zero-based)
// offset at which it starts. Atomic with respect to other Store callers.
func (s *Store) Append(b []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	off := s.size
	n, err := s.f.WriteAt(b, off)
	if err != nil {
		return 0, fmt.Errorf("diskstore: append %s: %w", s.path, err)
	}
	s.size += int64(n)
	return off, nil
}

// ReadAt reads exactly length bytes starting at the given raw offset. It
// fails on a short read (EOF before length bytes are available).
func (s *Store) ReadAt(rawOffset int64, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rawOffset < 0 || rawOffset+int64(length) > s.size {
		return nil, fmt.Errorf("diskstore: read %s: offset %d len %d beyond size %d", s.path, rawOffset, length, s.size)
	}
	buf := make([]byte, length)
	if _, err := s.f.ReadAt(buf, rawOffset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("diskstore: read %s: %w", s.path, err)
	}
	return buf, nil
}

// OverwriteAt rewrites b at an existing raw offset. rawOffset+len(b) must
// not exceed the current file size.
func (s *Store) OverwriteAt(rawOffset int64, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rawOffset < 0 || rawOffset+int64(len(b)) > s.size {
		return fmt.Errorf("diskstore: overwrite %s: offset %d len %d beyond size %d", s.path, rawOffset, len(b), s.size)
	}
	if _, err := s.f.WriteAt(b, rawOffset); err != nil {
		return fmt.Errorf("diskstore: overwrite %s: %w", s.path, err)
	}
	return nil
}

// Size returns the current file size in bytes.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// RecordCount returns how many fixed-width records of the given size the
// file currently holds, for sanity-checking an index against the data file.
func (s *Store) RecordCount(recordSize int) int64 {
	if recordSize <= 0 {
		return 0
	}
	return s.Size() / int64(recordSize)
}

// Sync flushes the file to stable storage.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Sync()
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Truncate resets the file to empty and clears any cached size. Nothing
// else in this module calls it.
func (s *Store) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Truncate(0); err != nil {
		return err
	}
	s.size = 0
	return nil
}
