package convert

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"statement-pdf-service/pkg/errors"
)

// Workspace is a per-request scratch directory. Close removes it with
// everything inside.
type Workspace struct {
	ID  string
	Dir string
}

// NewWorkspace creates a stmtpdf-<id>- directory under root, or under the
// system temp dir when root is empty.
func NewWorkspace(root string) (*Workspace, error) {
	id := uuid.New().String()[:8]
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, errors.FileError(errors.CodeDirectoryError, root, err)
		}
	}
	dir, err := os.MkdirTemp(root, "stmtpdf-"+id+"-")
	if err != nil {
		return nil, errors.FileError(errors.CodeDirectoryError, root, err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Path returns the location of name inside the workspace. Directory parts of
// name are dropped.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, filepath.Base(name))
}

// Save copies r into the workspace under name and returns the full path
func (w *Workspace) Save(name string, r io.Reader) (string, error) {
	p := w.Path(name)
	f, err := os.Create(p)
	if err != nil {
		return "", errors.FileError(errors.CodeFilePermission, p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", errors.FileError(errors.CodeFileCorrupted, p, err)
	}
	if err := f.Close(); err != nil {
		return "", errors.FileError(errors.CodeFilePermission, p, err)
	}
	return p, nil
}

// Close removes the workspace directory
func (w *Workspace) Close() error {
	return os.RemoveAll(w.Dir)
}
