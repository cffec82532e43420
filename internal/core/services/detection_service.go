package services

import (
	"context"
	"time"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
	"fallwatch/internal/infrastructure/inference"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FallThreshold is the score above which a frame classifies as a fall.
// The boundary is exclusive: a score of exactly 0.7 is normal.
const FallThreshold = 0.7

// BroadcastTopic is the fanout channel new detections are pushed on.
const BroadcastTopic = "new_detection"

type detectionService struct {
	decoder     *inference.Decoder
	classifier  *inference.Classifier
	events      ports.EventRepository
	blobs       ports.BlobStore
	broadcaster ports.Broadcaster
	registry    ports.DeviceRegistry
	threshold   float64
	now         ports.Clock
	logger      *zap.SugaredLogger
}

// NewDetectionService wires the frame pipeline:
// decode -> infer -> classify -> persist -> broadcast.
func NewDetectionService(
	decoder *inference.Decoder,
	classifier *inference.Classifier,
	events ports.EventRepository,
	blobs ports.BlobStore,
	broadcaster ports.Broadcaster,
	registry ports.DeviceRegistry,
	threshold float64,
	now ports.Clock,
	logger *zap.SugaredLogger,
) ports.DetectionService {
	if threshold <= 0 {
		threshold = FallThreshold
	}
	if now == nil {
		now = time.Now
	}
	return &detectionService{
		decoder:     decoder,
		classifier:  classifier,
		events:      events,
		blobs:       blobs,
		broadcaster: broadcaster,
		registry:    registry,
		threshold:   threshold,
		now:         now,
		logger:      logger,
	}
}

// Process classifies one frame. Persistence and broadcast failures degrade
// to logged errors: the caller still gets the classification, because the
// online response must not depend on durable storage being up.
func (s *detectionService) Process(ctx context.Context, raw []byte, location string, deviceID domain.DeviceID) (*ports.DetectionResult, error) {
	frame, err := s.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}

	score, err := s.classifier.Score(ctx, frame)
	if err != nil {
		return nil, err
	}

	status := domain.StatusNormal
	if score > s.threshold {
		status = domain.StatusFall
	}

	event := &domain.DetectionEvent{
		ID:          uuid.NewString(),
		Timestamp:   s.now().Truncate(time.Second),
		Location:    location,
		Status:      status,
		Score:       score,
		Probability: domain.FormatProbability(score),
		DeviceID:    deviceID,
	}

	if path, err := s.blobs.SaveImage(frame.Unsigned(), frame.Width, frame.Height); err != nil {
		s.logger.Errorw("failed to persist snapshot", "error", err)
	} else {
		event.ImagePath = path
	}

	if _, err := s.events.Insert(ctx, event); err != nil {
		s.logger.Errorw("failed to persist detection event", "error", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(BroadcastTopic, event)
	}

	if deviceID != "" {
		if err := s.registry.Touch(ctx, deviceID); err != nil {
			s.logger.Debugw("failed to refresh device last-seen", "error", err)
		}
	}

	s.logger.Debugw("frame classified",
		"status", status,
		"score", score,
		"location", location,
	)

	return &ports.DetectionResult{
		Fall:  status == domain.StatusFall,
		Score: score,
		Event: event,
	}, nil
}
