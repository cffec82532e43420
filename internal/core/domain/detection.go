package domain

import (
	"fmt"
	"time"
)

// DetectionStatus classifies a frame relative to the fall threshold.
type DetectionStatus string

const (
	StatusFall   DetectionStatus = "fall"
	StatusNormal DetectionStatus = "normal"
)

// DetectionEvent is one accepted classification frame. Immutable once created.
type DetectionEvent struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Location    string          `json:"location"`
	Status      DetectionStatus `json:"status"`
	Score       float64         `json:"score"`
	Probability string          `json:"probability"`
	ImagePath   string          `json:"image_path"`
	DeviceID    DeviceID        `json:"device_id,omitempty"`
}

// FormatProbability renders a clamped score the way events store it.
func FormatProbability(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}
