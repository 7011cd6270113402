package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageURLWithoutImage(t *testing.T) {
	s := New(t.TempDir(), "http://localhost:8080")
	assert.Empty(t, s.ImageURL(5))
}

func TestSaveThenResolve(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "http://localhost:8080")

	require.NoError(t, s.Save(5, strings.NewReader("png-bytes")))

	data, err := os.ReadFile(filepath.Join(dir, "5", "profile1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, "http://localhost:8080/profile-images/5/profile1.png", s.ImageURL(5))
	assert.Empty(t, s.ImageURL(6), "other users remain without image")
}

func TestSaveReplacesExistingImage(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "http://localhost:8080")

	require.NoError(t, s.Save(1, strings.NewReader("old")))
	require.NoError(t, s.Save(1, strings.NewReader("new")))

	data, err := os.ReadFile(filepath.Join(dir, "1", "profile1.png"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
