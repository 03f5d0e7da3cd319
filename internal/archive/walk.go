package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Entry is a single file selected for packaging.
type Entry struct {
	// Name is the archive entry name: slash-separated, relative to the
	// walked root.
	Name string
	// Path is the file's location on the walked filesystem.
	Path string
	Info os.FileInfo
}

// ListFiles walks root recursively and returns the files to package, in
// walk order. A file is skipped when its base name starts with a dot.
// Directories are never skipped, hidden or not, so non-hidden files inside
// hidden directories are still included. Symlinks are returned as entries
// and are not followed.
func ListFiles(fsys afero.Fs, root string) ([]Entry, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", root)
	}

	var entries []Entry
	err = afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}

		entries = append(entries, Entry{
			Name: filepath.ToSlash(rel),
			Path: path,
			Info: info,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source directory %s: %w", root, err)
	}

	return entries, nil
}
