// Package profile stores user profile images on the local filesystem and
// resolves their public URLs.
package profile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const imageName = "profile1.png"

// Store keeps one image per user under dir/<userId>/profile1.png.
type Store struct {
	dir     string
	baseURL string
}

// New creates a Store rooted at dir. baseURL is the public prefix under
// which the directory is served.
func New(dir, baseURL string) *Store {
	return &Store{dir: dir, baseURL: baseURL}
}

func (s *Store) imagePath(userID int) string {
	return filepath.Join(s.dir, strconv.Itoa(userID), imageName)
}

// ImageURL returns the public URL of userID's profile image, or "" when no
// image is stored. Existence is a local stat, never a network probe.
func (s *Store) ImageURL(userID int) string {
	if _, err := os.Stat(s.imagePath(userID)); err != nil {
		return ""
	}
	return fmt.Sprintf("%s/profile-images/%d/%s", s.baseURL, userID, imageName)
}

// Save writes userID's profile image, replacing any previous one.
func (s *Store) Save(userID int, r io.Reader) error {
	dir := filepath.Dir(s.imagePath(userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(s.imagePath(userID))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Dir returns the root directory images are stored under.
func (s *Store) Dir() string {
	return s.dir
}
