package http

import (
	"context"
	"errors"
	"net/http"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
	"fallwatch/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StreamHandler struct {
	relay   ports.StreamRelay
	metrics *monitoring.PrometheusCollector
	logger  *zap.SugaredLogger
}

func NewStreamHandler(relay ports.StreamRelay, metrics *monitoring.PrometheusCollector, logger *zap.SugaredLogger) *StreamHandler {
	return &StreamHandler{
		relay:   relay,
		metrics: metrics,
		logger:  logger,
	}
}

// Stream relays the device's multipart feed to one admitted viewer until the
// viewer disconnects or liveness is lost.
func (h *StreamHandler) Stream(c *gin.Context) {
	session, err := h.relay.Open(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrTooManyClients) {
			if h.metrics != nil {
				h.metrics.RecordRejectedSession()
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "maximum stream clients reached"})
			return
		}
		h.logger.Errorw("stream admission failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to connect to the camera"})
		return
	}
	// The slot must be released before the final gauge read, or the gauge
	// stays one high until the next session ends.
	defer func() {
		session.Close()
		if h.metrics != nil {
			h.metrics.SetActiveStreamSessions(h.relay.ActiveSessions())
		}
	}()

	if h.metrics != nil {
		h.metrics.SetActiveStreamSessions(h.relay.ActiveSessions())
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Writer.WriteHeaderNow()

	if err := session.Run(c.Request.Context(), c.Writer); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debugw("stream session ended", "error", err)
	}
}
