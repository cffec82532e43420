package blob

import (
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveImage_WritesDecodableJPEG(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop().Sugar())
	require.NoError(t, err)

	pixels := make([]byte, 96*96)
	for i := range pixels {
		pixels[i] = byte(i % 256)
	}

	path, err := store.SaveImage(pixels, 96, 96)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/uploads/fall_image_"), path)

	f, err := os.Open(filepath.Join(dir, strings.TrimPrefix(path, "/uploads/")))
	require.NoError(t, err)
	defer f.Close()

	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 96, bounds.Dx())
	assert.Equal(t, 96, bounds.Dy())
}

func TestSaveImage_RejectsShortBuffer(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)

	_, err = store.SaveImage(make([]byte, 10), 96, 96)
	assert.Error(t, err)
}

func TestSweep_RemovesOnlyExpiredSnapshots(t *testing.T) {
	dir := t.TempDir()

	oldSnap := filepath.Join(dir, "fall_image_old.jpg")
	freshSnap := filepath.Join(dir, "fall_image_fresh.jpg")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, name := range []string{oldSnap, freshSnap, unrelated} {
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldSnap, stale, stale))
	require.NoError(t, os.Chtimes(unrelated, stale, stale))

	pruner := NewPruner(dir, 24*time.Hour, time.Hour, zap.NewNop().Sugar())
	removed, err := pruner.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldSnap)
	assert.FileExists(t, freshSnap, "snapshots inside the retention window must survive")
	assert.FileExists(t, unrelated, "files the store did not write are never touched")
}

func TestSweep_EmptyDirectory(t *testing.T) {
	pruner := NewPruner(t.TempDir(), 24*time.Hour, time.Hour, zap.NewNop().Sugar())
	removed, err := pruner.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
