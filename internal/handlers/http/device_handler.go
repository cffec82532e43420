package http

import (
	"net/http"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
	"fallwatch/internal/infrastructure/monitoring"
	apperrors "fallwatch/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	dispatcher ports.CommandDispatcher
	registry   ports.DeviceRegistry
	deviceID   domain.DeviceID
	metrics    *monitoring.PrometheusCollector
	logger     *zap.SugaredLogger
}

func NewDeviceHandler(
	dispatcher ports.CommandDispatcher,
	registry ports.DeviceRegistry,
	deviceID domain.DeviceID,
	metrics *monitoring.PrometheusCollector,
	logger *zap.SugaredLogger,
) *DeviceHandler {
	return &DeviceHandler{
		dispatcher: dispatcher,
		registry:   registry,
		deviceID:   deviceID,
		metrics:    metrics,
		logger:     logger,
	}
}

// SetMode commands the device into stream or detection mode.
func (h *DeviceHandler) SetMode(c *gin.Context) {
	mode, ok := domain.ParseMode(c.PostForm("mode"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode"})
		return
	}

	if err := h.dispatcher.SetMode(c.Request.Context(), mode); err != nil {
		if h.metrics != nil {
			h.metrics.RecordDispatch("failure")
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "unable to reach the camera, check the network or the device",
		})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordDispatch("success")
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"mode":   mode,
	})
}

// Ping actively probes the device control endpoint.
func (h *DeviceHandler) Ping(c *gin.Context) {
	if err := h.dispatcher.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "offline"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

// Status reports the passive, time-window liveness judgment. No network I/O.
func (h *DeviceHandler) Status(c *gin.Context) {
	online, err := h.registry.IsOnline(c.Request.Context(), h.deviceID)
	if err != nil {
		h.logger.Errorw("liveness lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query device status"})
		return
	}

	status := "offline"
	if online {
		status = "online"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// ReportIP handles the device's self-registration.
func (h *DeviceHandler) ReportIP(c *gin.Context) {
	var req struct {
		IP  string `json:"ip" binding:"required"`
		MAC string `json:"mac"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := domain.DeviceID(req.MAC)
	if id == "" {
		id = h.deviceID
	}

	if err := h.registry.Upsert(c.Request.Context(), id, req.IP, domain.ModeUnknown); err != nil {
		h.logger.Errorw("device self-report failed", "error", err)
		status, message := http.StatusInternalServerError, "failed to register device"
		if appErr := apperrors.GetAppError(err); appErr != nil {
			status, message = appErr.HTTPStatus, appErr.Message
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	h.logger.Infow("device address updated", "device_id", id, "address", req.IP)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
