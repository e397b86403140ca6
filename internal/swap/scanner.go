package swap

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// ScanError reports a swap directory that could not be fully read. Files
// found before the fault are still returned alongside it.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scan returns the absolute path of every regular file under root, in lexical
// walk order. Symlinked directories are not followed.
func Scan(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, &ScanError{Root: abs, Err: err}
	}
	return files, nil
}

// relativeURLPath maps a file under root to the site path it overrides,
// e.g. <root>/css/x.ttf -> /css/x.ttf.
func relativeURLPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(rel), nil
}
