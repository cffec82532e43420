package repositories

import (
	"fallwatch/internal/core/ports"
	"fallwatch/internal/infrastructure/repositories/memory"
	redisrepo "fallwatch/internal/infrastructure/repositories/redis"
	"fallwatch/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory. When Redis is
// enabled but unreachable, the factory falls back to memory repositories.
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateDeviceRepository creates a device repository (Redis or memory)
func (f *RepositoryFactory) CreateDeviceRepository() ports.DeviceRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisDeviceRepository(f.redisClient)
	}
	return memory.NewMemoryDeviceRepository()
}

// CreateEventRepository creates an event repository (Redis or memory)
func (f *RepositoryFactory) CreateEventRepository() ports.EventRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisEventRepository(f.redisClient)
	}
	return memory.NewMemoryEventRepository()
}

// Close releases factory resources
func (f *RepositoryFactory) Close() error {
	return redisrepo.CloseRedisClient(f.redisClient)
}
