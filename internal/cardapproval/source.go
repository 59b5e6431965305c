package cardapproval

import (
	stderrors "errors"
	"path/filepath"

	"github.com/spf13/afero"

	"card-approval-workers/internal/common/errors"
)

var errIsDirectory = stderrors.New("path is a directory")

// FileSource checks for and reads card request files.
type FileSource interface {
	// Exists returns the resolved path, or FILE_NOT_FOUND.
	Exists(path string) (string, error)
	// Read returns the full content of a resolved path, or READ_ERROR.
	Read(path string) (string, error)
}

// FSSource is a FileSource over an afero filesystem. Relative paths are
// resolved against BaseDir when it is set.
type FSSource struct {
	fs      afero.Fs
	baseDir string
}

func NewFSSource(fs afero.Fs, baseDir string) *FSSource {
	return &FSSource{fs: fs, baseDir: baseDir}
}

// NewOSSource reads from the local disk.
func NewOSSource(baseDir string) *FSSource {
	return NewFSSource(afero.NewOsFs(), baseDir)
}

func (s *FSSource) resolve(path string) string {
	if s.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

func (s *FSSource) Exists(path string) (string, error) {
	resolved := s.resolve(path)
	ok, err := afero.Exists(s.fs, resolved)
	if err != nil {
		return "", errors.NewReadError(path, err)
	}
	if !ok {
		return "", errors.NewFileNotFoundError(path)
	}
	return resolved, nil
}

func (s *FSSource) Read(path string) (string, error) {
	isDir, err := afero.IsDir(s.fs, path)
	if err != nil {
		return "", errors.NewReadError(path, err)
	}
	if isDir {
		return "", errors.NewReadError(path, errIsDirectory)
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", errors.NewReadError(path, err)
	}
	return string(data), nil
}
