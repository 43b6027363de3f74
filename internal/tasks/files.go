package tasks

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/mediadesk/internal/shared"
)

// LocalFile is a [FileRef] backed by a path on disk.
type LocalFile struct {
	Path string
	size int64
}

// NewLocalFile stats path and returns a [LocalFile] for it.
func NewLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}
	return &LocalFile{Path: path, size: info.Size()}, nil
}

func (f *LocalFile) Name() string { return filepath.Base(f.Path) }
func (f *LocalFile) Size() int64 { return f.size }
func (f *LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.Path) }

// Accepts reports whether name has one of the accepted extensions. An empty list accepts everything.
func Accepts(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	return slices.ContainsFunc(extensions, func(e string) bool { return strings.EqualFold(e, ext) })
}

// CollectFiles turns command-line paths into a selection in argument order. Directories contribute their
// accepted files in lexical order (one level deep); explicitly named files must themselves be accepted.
func CollectFiles(paths []string, extensions []string) ([]FileRef, error) {
	var files []FileRef
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		if !info.IsDir() {
			if !Accepts(p, extensions) {
				return nil, fmt.Errorf("%w: %s is not an accepted file type (%s)", shared.ErrInvalidArgument, p, strings.Join(extensions, " "))
			}
			files = append(files, &LocalFile{Path: p, size: info.Size()})
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !entry.Type().IsRegular() || !Accepts(entry.Name(), extensions) {
				continue
			}
			f, err := localFileFromEntry(filepath.Join(p, entry.Name()), entry)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

func localFileFromEntry(path string, entry fs.DirEntry) (*LocalFile, error) {
	info, err := entry.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return &LocalFile{Path: path, size: info.Size()}, nil
}
