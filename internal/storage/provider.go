package storage

import "io"

// Provider defines the behavior for any image storage backend.
type Provider interface {
	Put(key string, body io.ReadSeeker, contentType string) error
	Delete(key string) error
	Exists(key string) (bool, error)
	PublicURL(key string) string
}
