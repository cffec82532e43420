package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Device struct {
		Address        string        `yaml:"address"`
		ControlPort    int           `yaml:"control_port"`
		StreamPath     string        `yaml:"stream_path"`
		LivenessWindow time.Duration `yaml:"liveness_window"`
	} `yaml:"device"`

	Dispatch struct {
		MaxAttempts    int           `yaml:"max_attempts"`
		InitialDelay   time.Duration `yaml:"initial_delay"`
		Multiplier     float64       `yaml:"multiplier"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout"`
		PingTimeout    time.Duration `yaml:"ping_timeout"`
		Breaker        struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			SuccessThreshold int           `yaml:"success_threshold"`
			OpenTimeout      time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"dispatch"`

	Detection struct {
		APIKey             string        `yaml:"api_key"`
		ModelURL           string        `yaml:"model_url"`
		ModelTimeout       time.Duration `yaml:"model_timeout"`
		FrameWidth         int           `yaml:"frame_width"`
		FrameHeight        int           `yaml:"frame_height"`
		FallThreshold      float64       `yaml:"fall_threshold"`
		PositiveClassIndex int           `yaml:"positive_class_index"`
		DefaultLocation    string        `yaml:"default_location"`
		UploadsDir         string        `yaml:"uploads_dir"`
		SnapshotRetention  time.Duration `yaml:"snapshot_retention"`
		SweepInterval      time.Duration `yaml:"sweep_interval"`
	} `yaml:"detection"`

	Stream struct {
		MaxClients        int           `yaml:"max_clients"`
		ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
		MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay"`
		UpstreamTimeout   time.Duration `yaml:"upstream_timeout"`
		ChunkSize         int           `yaml:"chunk_size"`
	} `yaml:"stream"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be >= 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Device
	if c.Device.ControlPort <= 0 || c.Device.ControlPort > 65535 {
		return fmt.Errorf("device.control_port must be a valid port")
	}
	if c.Device.LivenessWindow <= 0 {
		return fmt.Errorf("device.liveness_window must be > 0")
	}

	// Dispatch
	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("dispatch.max_attempts must be > 0")
	}
	if c.Dispatch.InitialDelay <= 0 {
		return fmt.Errorf("dispatch.initial_delay must be > 0")
	}
	if c.Dispatch.Multiplier < 1.0 {
		return fmt.Errorf("dispatch.multiplier must be >= 1.0")
	}
	if c.Dispatch.AttemptTimeout <= 0 {
		return fmt.Errorf("dispatch.attempt_timeout must be > 0")
	}
	if c.Dispatch.PingTimeout <= 0 {
		return fmt.Errorf("dispatch.ping_timeout must be > 0")
	}

	// Detection
	if c.Detection.APIKey == "" {
		return fmt.Errorf("detection.api_key must not be empty")
	}
	if c.Detection.ModelURL == "" {
		return fmt.Errorf("detection.model_url must not be empty")
	}
	if c.Detection.ModelTimeout <= 0 {
		return fmt.Errorf("detection.model_timeout must be > 0")
	}
	if c.Detection.FrameWidth <= 0 || c.Detection.FrameHeight <= 0 {
		return fmt.Errorf("detection.frame_width and frame_height must be > 0")
	}
	if c.Detection.FallThreshold < 0 || c.Detection.FallThreshold > 1 {
		return fmt.Errorf("detection.fall_threshold must be in [0,1]")
	}
	if c.Detection.PositiveClassIndex < 0 {
		return fmt.Errorf("detection.positive_class_index must be >= 0")
	}
	if c.Detection.UploadsDir == "" {
		return fmt.Errorf("detection.uploads_dir must not be empty")
	}
	if c.Detection.SnapshotRetention > 0 && c.Detection.SweepInterval <= 0 {
		return fmt.Errorf("detection.sweep_interval must be > 0 when snapshot_retention is set")
	}

	// Stream
	if c.Stream.MaxClients <= 0 {
		return fmt.Errorf("stream.max_clients must be > 0")
	}
	if c.Stream.ReconnectDelay <= 0 {
		return fmt.Errorf("stream.reconnect_delay must be > 0")
	}
	if c.Stream.MaxReconnectDelay < c.Stream.ReconnectDelay {
		return fmt.Errorf("stream.max_reconnect_delay must be >= stream.reconnect_delay")
	}
	if c.Stream.UpstreamTimeout <= 0 {
		return fmt.Errorf("stream.upstream_timeout must be > 0")
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("stream.chunk_size must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":5000"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 0 // streaming responses must not be cut by a write deadline
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Device.Address = "192.168.1.8"
	cfg.Device.ControlPort = 81
	cfg.Device.StreamPath = "/stream"
	cfg.Device.LivenessWindow = 60 * time.Second

	cfg.Dispatch.MaxAttempts = 5
	cfg.Dispatch.InitialDelay = 2 * time.Second
	cfg.Dispatch.Multiplier = 2.0
	cfg.Dispatch.AttemptTimeout = 15 * time.Second
	cfg.Dispatch.PingTimeout = 5 * time.Second
	cfg.Dispatch.Breaker.FailureThreshold = 5
	cfg.Dispatch.Breaker.SuccessThreshold = 2
	cfg.Dispatch.Breaker.OpenTimeout = 30 * time.Second

	cfg.Detection.APIKey = "change-me-in-production"
	cfg.Detection.ModelURL = "http://localhost:8501/v1/score"
	cfg.Detection.ModelTimeout = 10 * time.Second
	cfg.Detection.FrameWidth = 96
	cfg.Detection.FrameHeight = 96
	cfg.Detection.FallThreshold = 0.7
	cfg.Detection.PositiveClassIndex = 1
	cfg.Detection.DefaultLocation = "living room"
	cfg.Detection.UploadsDir = "uploads"
	cfg.Detection.SnapshotRetention = 7 * 24 * time.Hour
	cfg.Detection.SweepInterval = time.Hour

	cfg.Stream.MaxClients = 2
	cfg.Stream.ReconnectDelay = 2 * time.Second
	cfg.Stream.MaxReconnectDelay = 30 * time.Second
	cfg.Stream.UpstreamTimeout = 30 * time.Second
	cfg.Stream.ChunkSize = 1024

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Monitoring.PrometheusEnabled = true

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("FALLWATCH_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if addr := os.Getenv("FALLWATCH_DEVICE_ADDRESS"); addr != "" {
		c.Device.Address = addr
	}
	if key := os.Getenv("FALLWATCH_API_KEY"); key != "" {
		c.Detection.APIKey = key
	}
	if level := os.Getenv("FALLWATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("FALLWATCH_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}
