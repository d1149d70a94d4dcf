// Package scan lists the direct children of a directory whose extension
// matches a requested one.
package scan

import (
	"errors"
	"io"
	"iter"
	"os"
	"sync"

	"golang.org/x/text/cases"

	"wavconv/internal/pathcat"
	"wavconv/internal/services"
)

const readBatch = 64

var fold = cases.Fold()

// Scanner performs a single pass over one directory.
type Scanner struct {
	dir string
	ext string

	mu       sync.Mutex
	file     *os.File
	consumed bool
	err      error
}

// Open prepares a scan of dir for entries with extension ext (no leading dot).
func Open(dir, ext string) (*Scanner, error) {
	file, err := os.Open(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrDirectoryUnreadable, "scan", "open", dir, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, services.Wrap(services.ErrDirectoryUnreadable, "scan", "stat", dir, err)
	}
	if !info.IsDir() {
		_ = file.Close()
		return nil, services.Wrap(services.ErrDirectoryUnreadable, "scan", "open", dir+" is not a directory", nil)
	}
	return &Scanner{dir: dir, ext: ext, file: file}, nil
}

// Names yields matching file names in directory order. The sequence can be
// consumed once; later calls yield nothing.
func (s *Scanner) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.mu.Lock()
		if s.consumed || s.file == nil {
			s.mu.Unlock()
			return
		}
		s.consumed = true
		file := s.file
		s.mu.Unlock()

		for {
			entries, err := file.ReadDir(readBatch)
			for _, entry := range entries {
				if !s.accept(entry) {
					continue
				}
				if !yield(entry.Name()) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.setErr(services.Wrap(services.ErrDirectoryUnreadable, "scan", "read", s.dir, err))
				}
				return
			}
		}
	}
}

func (s *Scanner) accept(entry os.DirEntry) bool {
	if entry.IsDir() {
		return false
	}
	if entry.Type()&os.ModeSymlink != 0 {
		info, err := os.Stat(s.dir + string(os.PathSeparator) + entry.Name())
		if err != nil || info.IsDir() {
			return false
		}
	}
	return matchExtension(entry.Name(), s.ext)
}

func (s *Scanner) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err reports a read failure that ended the scan early.
func (s *Scanner) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the directory handle.
func (s *Scanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// matchExtension compares the extension of name with ext ignoring case.
// Names without an extension never match, and neither do dotfiles such as
// ".wav".
func matchExtension(name, ext string) bool {
	got := pathcat.Extension(name)
	if got == "" || ext == "" {
		return false
	}
	return fold.String(got) == fold.String(ext)
}
