// Package localfs reads upload payloads through a go-billy filesystem so the
// uploader can be pointed at the real disk or at an in-memory tree in tests.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	apperrors "artifact-uploader/pkg/errors"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

const (
	errNotRegularFileFmt = "%s is not a regular file"
	errCloseFileFmt      = "localfs: close %q: %w"
)

// FS reads files from the wrapped billy filesystem.
type FS struct {
	fs billy.Basic
}

// New wraps an existing billy filesystem.
func New(fs billy.Basic) *FS {
	return &FS{fs: fs}
}

// NewOS returns a filesystem that resolves paths exactly like the os package,
// relative paths included.
func NewOS() *FS {
	return &FS{fs: &osfs.ChrootOS{}}
}

// Stat checks that path names a readable regular file without opening it.
func (f *FS) Stat(path string) (fs.FileInfo, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return nil, mapError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, apperrors.FileUnreadable(path, fmt.Errorf(errNotRegularFileFmt, path))
	}
	return info, nil
}

// ReadFile returns the full contents of path. The file handle is released
// before ReadFile returns, whatever the outcome.
func (f *FS) ReadFile(path string) (data []byte, err error) {
	if _, err := f.Stat(path); err != nil {
		return nil, err
	}

	file, err := f.fs.Open(path)
	if err != nil {
		return nil, mapError(path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			data, err = nil, apperrors.FileUnreadable(path, fmt.Errorf(errCloseFileFmt, path, cerr))
		}
	}()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, apperrors.FileUnreadable(path, err)
	}
	return data, nil
}

func mapError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.FileNotFound(path)
	}
	return apperrors.FileUnreadable(path, err)
}
