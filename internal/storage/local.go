package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"statement-pdf-service/pkg/errors"
)

// LocalSink copies outputs into a directory
type LocalSink struct {
	Dir string
}

// NewLocalSink creates a sink writing under dir
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{Dir: dir}
}

func (s *LocalSink) Name() string { return KindLocal }

// Publish copies localPath to Dir/key, creating intermediate directories.
// Publishing a file onto itself leaves it untouched.
func (s *LocalSink) Publish(ctx context.Context, localPath, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.InternalError(errors.CodeCancelled, "publish", err)
	}

	dest := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errors.StorageError(errors.CodeUploadFailed, dest, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", errors.FileError(errors.CodeFileNotFound, localPath, err)
	}
	defer src.Close()

	srcInfo, err := src.Stat()
	if err != nil {
		return "", errors.FileError(errors.CodeUnreadableFile, localPath, err)
	}
	if destInfo, err := os.Stat(dest); err == nil && os.SameFile(srcInfo, destInfo) {
		return dest, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", errors.StorageError(errors.CodeUploadFailed, dest, err)
	}
	fail := func(cause error) (string, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.StorageError(errors.CodeUploadFailed, dest, cause)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", errors.StorageError(errors.CodeUploadFailed, dest, err)
	}
	return dest, nil
}
