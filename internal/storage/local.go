package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider stores images on the local filesystem, served back under
// the configured public base URL
type LocalProvider struct {
	rootDir       string
	publicBaseURL string
}

func NewLocalProvider(rootDir, publicBaseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, err
	}
	return &LocalProvider{
		rootDir:       rootDir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// RootDir returns the directory served as the public media root
func (l *LocalProvider) RootDir() string {
	return l.rootDir
}

func (l *LocalProvider) Put(key string, body io.ReadSeeker, contentType string) error {
	path := filepath.Join(l.rootDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, body)
	return err
}

func (l *LocalProvider) Delete(key string) error {
	err := os.Remove(filepath.Join(l.rootDir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *LocalProvider) Exists(key string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.rootDir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *LocalProvider) PublicURL(key string) string {
	return l.publicBaseURL + "/" + key
}
