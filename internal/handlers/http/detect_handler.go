package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
	"fallwatch/internal/infrastructure/monitoring"
	apperrors "fallwatch/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxFramePayload bounds the raw request body; oversized frames are legal
// (excess is truncated) but unbounded reads are not.
const maxFramePayload = 16 << 20

type DetectHandler struct {
	detection       ports.DetectionService
	events          ports.EventRepository
	defaultLocation string
	minPayload      int
	metrics         *monitoring.PrometheusCollector
	logger          *zap.SugaredLogger
}

func NewDetectHandler(
	detection ports.DetectionService,
	events ports.EventRepository,
	defaultLocation string,
	minPayload int,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *DetectHandler {
	return &DetectHandler{
		detection:       detection,
		events:          events,
		defaultLocation: defaultLocation,
		minPayload:      minPayload,
		metrics:         metrics,
		logger:          logger,
	}
}

// FallDetect accepts one raw classification frame from the device.
// API key validation happens in middleware before this handler runs.
func (h *DetectHandler) FallDetect(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFramePayload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"fall": false, "error": "failed to read image data"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"fall": false, "error": "no image data received"})
		return
	}
	if len(raw) < h.minPayload {
		c.JSON(http.StatusBadRequest, gin.H{
			"fall":  false,
			"error": "image data too small",
		})
		return
	}

	location := c.GetHeader("X-Location")
	if location == "" {
		location = h.defaultLocation
	}
	deviceID := domain.DeviceID(c.GetHeader("X-Device-ID"))

	start := time.Now()
	result, err := h.detection.Process(c.Request.Context(), raw, location, deviceID)
	if err != nil {
		h.logger.Errorw("frame processing failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrShortFrame) {
			status = http.StatusBadRequest
		}
		// Failures carry a distinct error field so fall:false is never
		// mistaken for a genuine "no fall" classification.
		c.JSON(status, gin.H{"fall": false, "error": err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveInferenceDuration(time.Since(start))
		h.metrics.RecordDetection(string(result.Event.Status))
	}

	c.JSON(http.StatusOK, gin.H{
		"fall":  result.Fall,
		"score": result.Score,
	})
}

// History lists persisted detection events in insertion order.
func (h *DetectHandler) History(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list history", "error", err)
		status, message := http.StatusInternalServerError, "failed to fetch history"
		if appErr := apperrors.GetAppError(err); appErr != nil {
			status, message = appErr.HTTPStatus, appErr.Message
		}
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, events)
}
