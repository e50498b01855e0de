package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"

	"dmchat/internal/pkg/errs"
)

// LocalStore keeps attachments as flat files in an afero filesystem.
type LocalStore struct {
	fs afero.Fs
}

// NewLocalStore returns a LocalStore over fs. Production wraps the upload
// directory in an afero.BasePathFs; tests pass afero.NewMemMapFs().
func NewLocalStore(fs afero.Fs) *LocalStore {
	return &LocalStore{fs: fs}
}

// Put implements Service.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrStorage, err)
	}

	key, err := cleanName(name)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(s.fs, key, data, 0o644); err != nil {
		return errs.Wrap(errs.ErrStorage, err)
	}

	return nil
}

// Open implements Service.
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.OpenFile(key, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errs.Wrap(errs.ErrStorage, err)
	}

	return f, nil
}

// Delete implements Service.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	key, err := cleanName(name)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(errs.ErrStorage, err)
	}

	return nil
}

// cleanName maps a generated name to a root-level file path, refusing anything
// that would leave the store root.
func cleanName(name string) (string, error) {
	if name == "" || path.Base(name) != name || name == "." || name == ".." {
		return "", errs.NewError(errs.ErrAttachmentInvalid)
	}
	return "/" + name, nil
}
