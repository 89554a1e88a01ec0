package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileSystem stores objects under a root directory and serves them from
// a URL prefix.
type FileSystem struct {
	root    string
	baseURL string
}

func NewFileSystem(root, baseURL string) *FileSystem {
	return &FileSystem{root: root, baseURL: baseURL}
}

// Save writes body to root/key. When the name is taken a short random
// suffix is added before the extension so earlier uploads are kept.
func (f *FileSystem) Save(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(f.root, filepath.FromSlash(path.Dir(key)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := path.Base(key)
	out, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:7] + ext
		out, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	target := out.Name()

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(target)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return joinURL(f.baseURL, path.Join(path.Dir(key), name)), nil
}
