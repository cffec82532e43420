package blob

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FileStore persists detection snapshots as JPEG files under a local
// uploads directory and returns the URL path the router serves them at.
type FileStore struct {
	dir    string
	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewFileStore(dir string, logger *zap.SugaredLogger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}, nil
}

// SaveImage encodes one grayscale frame and returns its serving path.
func (s *FileStore) SaveImage(pixels []byte, width, height int) (string, error) {
	if len(pixels) < width*height {
		return "", fmt.Errorf("pixel buffer too small: %d for %dx%d", len(pixels), width, height)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, pixels[:width*height])

	filename := fmt.Sprintf("fall_image_%s.jpg", s.now().Format("20060102_150405.000"))
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.logger.Debugw("snapshot saved", "path", path)
	return "/uploads/" + filename, nil
}
