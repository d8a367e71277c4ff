package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// UploadPrefix namespaces every check-in image inside the bucket.
const UploadPrefix = "uploads"

// StoredObject describes a file after it reached storage.
type StoredObject struct {
	Key  string
	URL  string
	Size int64
}

// FileStorage stores binary objects and resolves them to public URLs.
type FileStorage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (StoredObject, error)
}

// UploadKey derives the object key of an uploaded file: uploads/<file name>.
// Directory parts of the client-supplied name are dropped.
func UploadKey(fileName string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		name = fmt.Sprintf("%d.jpg", time.Now().UnixNano())
	}
	return UploadPrefix + "/" + name
}

// DiskFileStorage writes objects below Root. The router serves Root at
// /files, so BaseURL + "/files/" + key is the public URL of an object.
type DiskFileStorage struct {
	Root    string
	BaseURL string
}

func NewDiskFileStorage(root, baseURL string) *DiskFileStorage {
	return &DiskFileStorage{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Upload overwrites any object already stored under key.
func (s *DiskFileStorage) Upload(ctx context.Context, key, contentType string, data []byte) (StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return StoredObject{}, err
	}

	fullpath := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullpath), 0755); err != nil {
		return StoredObject{}, fmt.Errorf("mkdir uploads dir: %w", err)
	}
	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return StoredObject{}, fmt.Errorf("write file: %w", err)
	}

	return StoredObject{
		Key:  key,
		URL:  s.PublicURL(key),
		Size: int64(len(data)),
	}, nil
}

// PublicURL resolves an object key to the URL it is served from.
func (s *DiskFileStorage) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.BaseURL + "/files/" + strings.Join(parts, "/")
}
