package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const filePerm = 0o600

type fileRecord struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File persists the token as a small JSON document readable only by the
// current user.
type File struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFile returns a store backed by path. The parent directory is created
// on the first Set.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get implements authclient.TokenStore.
func (f *File) Get(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read token file")
	}

	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode token file").
			WithMetadata(map[string]any{"path": f.path})
	}

	if rec.Token == "" {
		return "", false, nil
	}

	return rec.Token, true, nil
}

// Set implements authclient.TokenStore. The file is replaced atomically.
func (f *File) Set(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(fileRecord{Token: token, UpdatedAt: f.now().UTC()})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode token file")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create token directory")
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create token file")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set token file mode")
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write token file")
	}
	if err := tmp.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write token file")
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replace token file")
	}

	return nil
}

// Remove implements authclient.TokenStore. A missing file is not an error.
func (f *File) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove token file")
	}
	return nil
}
