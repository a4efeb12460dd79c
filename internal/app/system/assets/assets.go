// Package assets stores uploaded images for articles and products.
package assets

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload limits.
const (
	MaxFileSize = 5 << 20
	MaxFiles    = 5
	// MaxRequestSize bounds a whole multipart body: every file plus the
	// form fields.
	MaxRequestSize = MaxFiles*MaxFileSize + 1<<20
	// FormField is the multipart field carrying images.
	FormField = "images"
)

// Key prefixes.
const (
	PrefixArticles = "articles"
	PrefixProducts = "products"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

var (
	errTooMany  = apperr.New(apperr.UploadRejected, fmt.Sprintf("Too many files. Maximum is %d.", MaxFiles))
	errTooLarge = apperr.New(apperr.UploadRejected, "File size too large. Maximum size is 5MB.")
	errBadType  = apperr.New(apperr.UploadRejected, "Invalid file type. Only JPEG, PNG and GIF are allowed.")
)

// Store persists an object under key and returns its public URL.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Backend() string
}

// MetricsRecorder receives the outcome of each stored upload.
type MetricsRecorder interface {
	RecordUpload(backend string, err error)
}

// Check validates count, size and declared type of every file. It reads
// nothing; content is sniffed in Save.
func Check(files []*multipart.FileHeader) error {
	if len(files) > MaxFiles {
		return errTooMany
	}
	for _, fh := range files {
		if fh.Size > MaxFileSize {
			return errTooLarge
		}
		if _, ok := allowedTypes[fh.Header.Get("Content-Type")]; !ok {
			return errBadType
		}
	}
	return nil
}

// sniff detects the content type from the first 512 bytes and rewinds.
func sniff(f multipart.File) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// Uploader checks and stores image uploads.
type Uploader struct {
	store   Store
	metrics MetricsRecorder
	log     *zap.Logger
}

// NewUploader returns an Uploader. metrics may be nil.
func NewUploader(store Store, metrics MetricsRecorder, log *zap.Logger) *Uploader {
	return &Uploader{store: store, metrics: metrics, log: log}
}

// Save stores files under prefix and returns them as images. Every file is
// checked, including its sniffed content type, before anything is written.
// If a later write fails, the files already written are removed.
func (u *Uploader) Save(ctx context.Context, prefix string, files []*multipart.FileHeader) ([]models.Image, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if err := Check(files); err != nil {
		return nil, err
	}

	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	types := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.Wrap(apperr.UploadRejected, "Could not read uploaded file.", err)
		}
		opened = append(opened, f)
		ct, err := sniff(f)
		if err != nil {
			return nil, apperr.Wrap(apperr.UploadRejected, "Could not read uploaded file.", err)
		}
		if _, ok := allowedTypes[ct]; !ok {
			return nil, errBadType
		}
		types = append(types, ct)
	}

	images := make([]models.Image, 0, len(files))
	var keys []string
	for i, f := range opened {
		key := path.Join(prefix, uuid.NewString()+allowedTypes[types[i]])
		url, err := u.store.Put(ctx, key, f, types[i])
		if u.metrics != nil {
			u.metrics.RecordUpload(u.store.Backend(), err)
		}
		if err != nil {
			u.Discard(ctx, keys)
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
		keys = append(keys, key)
		images = append(images, models.Image{URL: url})
	}
	return images, nil
}

// Discard removes stored keys, logging failures. Used when the document the
// images belong to could not be saved.
func (u *Uploader) Discard(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := u.store.Delete(ctx, k); err != nil {
			u.log.Warn("failed to remove orphaned upload", zap.String("key", k), zap.Error(err))
		}
	}
}

// Keys returns the storage keys behind images produced by Save, for Discard.
func (u *Uploader) Keys(images []models.Image) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		if k, ok := keyFromURL(u.store, img.URL); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

type keyResolver interface {
	KeyFromURL(url string) (string, bool)
}

func keyFromURL(s Store, url string) (string, bool) {
	if kr, ok := s.(keyResolver); ok {
		return kr.KeyFromURL(url)
	}
	return "", false
}
