package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores files on disk under dir and serves them below urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates dir if needed.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("local asset directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset directory: %w", err)
	}
	return &Local{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (l *Local) Backend() string { return "local" }

// Dir is the root directory served for urlPrefix.
func (l *Local) Dir() string { return l.dir }

// URLPrefix is the path files are served under.
func (l *Local) URLPrefix() string { return l.urlPrefix }

// fullPath resolves key inside dir. Cleaning against "/" keeps ".."
// segments from escaping the directory.
func (l *Local) fullPath(key string) (full, rel string, err error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", "", fmt.Errorf("invalid key %q", key)
	}
	rel = strings.TrimPrefix(clean, "/")
	return filepath.Join(l.dir, filepath.FromSlash(rel)), rel, nil
}

// Put writes r to a temporary file and renames it into place.
func (l *Local) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	full, rel, err := l.fullPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return l.urlPrefix + "/" + rel, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	full, _, err := l.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) KeyFromURL(url string) (string, bool) {
	prefix := l.urlPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
