package http

import (
	"net/http"

	"fallwatch/internal/infrastructure/fanout"
	"fallwatch/internal/infrastructure/middleware"
	"fallwatch/pkg/config"
	"fallwatch/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter assembles the full exposed surface.
func NewRouter(
	cfg *config.Config,
	zlog *zap.Logger,
	detect *DetectHandler,
	device *DeviceHandler,
	stream *StreamHandler,
	hub *fanout.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.NewContextLogger(zlog)))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	router.POST("/fall_detect", middleware.APIKeyMiddleware(cfg.Detection.APIKey), detect.FallDetect)
	router.GET("/stream", stream.Stream)

	api := router.Group("/api")
	{
		api.POST("/set_mode", device.SetMode)
		api.GET("/ping_esp32", device.Ping)
		api.GET("/device_status", device.Status)
		api.POST("/report_ip", device.ReportIP)
		api.GET("/history", detect.History)
	}

	router.GET("/ws/events", gin.WrapF(hub.HandleWebSocket))
	router.Static("/uploads", cfg.Detection.UploadsDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}
