package storage

import (
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"phuket-estate/internal/config"
)

// Client wraps the configured storage backend with the key layout used
// for listing images
type Client struct {
	backend Provider
}

// New selects the backend from configuration: "s3" for any S3-compatible
// bucket, anything else falls back to local disk.
func New(cfg config.StorageConfig) (*Client, error) {
	var backend Provider
	var err error

	if cfg.Provider == "s3" {
		backend, err = NewS3Provider(cfg.S3, cfg.PublicBaseURL)
	} else {
		backend, err = NewLocalProvider(cfg.LocalDir, cfg.PublicBaseURL)
	}
	if err != nil {
		return nil, err
	}

	return &Client{backend: backend}, nil
}

// NewWithProvider creates a Client over an existing backend
func NewWithProvider(backend Provider) *Client {
	return &Client{backend: backend}
}

// Backend returns the underlying provider
func (c *Client) Backend() Provider {
	return c.backend
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// ImageKey builds the storage key for a new listing image:
// properties/<propertyID>/<timestamp><ext>. The timestamp keeps uploads
// within one listing from colliding.
func ImageKey(propertyID, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("unsupported image extension %q", ext)
	}
	return fmt.Sprintf("properties/%s/%d%s", propertyID, time.Now().UnixNano(), ext), nil
}

// UploadPropertyImage stores an image under the listing's key prefix and
// returns the storage key and its public URL
func (c *Client) UploadPropertyImage(propertyID, filename string, body io.ReadSeeker) (key, url string, err error) {
	key, err = ImageKey(propertyID, filename)
	if err != nil {
		return "", "", err
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if err := c.backend.Put(key, body, contentType); err != nil {
		return "", "", fmt.Errorf("upload %s: %w", key, err)
	}

	return key, c.backend.PublicURL(key), nil
}

// DeleteImage removes a stored image by its key. Deleting a key that is
// already gone is not an error.
func (c *Client) DeleteImage(key string) error {
	if key == "" {
		return nil
	}
	if err := c.backend.Delete(key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ImageExists reports whether a stored image key still resolves to a file
func (c *Client) ImageExists(key string) (bool, error) {
	return c.backend.Exists(key)
}
