// Package fileutil writes output files atomically.
package fileutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// AtomicFile buffers output in a temp file beside the destination and only
// renames it into place on Commit. Every byte written is hashed.
type AtomicFile struct {
	dst    string
	tmp    *os.File
	hasher hash.Hash
	size   int64
	done   bool
}

// CreateAtomic opens a temp file in the directory of dst with the given mode.
func CreateAtomic(dst string, mode os.FileMode) (*AtomicFile, error) {
	dir, base := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.partial")
	if err != nil {
		return nil, err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return &AtomicFile{dst: dst, tmp: tmp, hasher: blake3.New()}, nil
}

func (f *AtomicFile) Write(p []byte) (int, error) {
	if f.done {
		return 0, os.ErrClosed
	}
	n, err := f.tmp.Write(p)
	f.hasher.Write(p[:n])
	f.size += int64(n)
	return n, err
}

// Size returns the number of bytes written so far.
func (f *AtomicFile) Size() int64 { return f.size }

// Digest returns "blake3:<hex>" of the bytes written so far.
func (f *AtomicFile) Digest() string {
	return "blake3:" + hex.EncodeToString(f.hasher.Sum(nil))
}

// TempPath returns the path of the pending temp file.
func (f *AtomicFile) TempPath() string { return f.tmp.Name() }

// Commit flushes the temp file and renames it over the destination.
func (f *AtomicFile) Commit() error {
	if f.done {
		return os.ErrClosed
	}
	f.done = true
	syncErr := f.tmp.Sync()
	closeErr := f.tmp.Close()
	if err := errors.Join(syncErr, closeErr); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("finalize %s: %w", f.dst, err)
	}
	if err := os.Rename(f.tmp.Name(), f.dst); err != nil {
		_ = os.Remove(f.tmp.Name())
		return fmt.Errorf("rename into %s: %w", f.dst, err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	_ = f.tmp.Close()
	_ = os.Remove(f.tmp.Name())
}

// HashFile returns the "blake3:<hex>" digest of the file at path.
func HashFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return "", err
	}
	return "blake3:" + hex.EncodeToString(hasher.Sum(nil)), nil
}
