package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
)

// Manager is a queue backend that can also be browsed
type Manager interface {
	delivery.QueueManager
	delivery.Browser
}

// Factory creates the queue backend selected by configuration
type Factory struct {
	db     *gorm.DB
	redis  redis.UniversalClient
	logger *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithDatabase supplies the connection used by the database backend
func WithDatabase(db *gorm.DB) FactoryOption {
	return func(f *Factory) {
		f.db = db
	}
}

// WithRedis supplies the client used by the redis backend
func WithRedis(client redis.UniversalClient) FactoryOption {
	return func(f *Factory) {
		f.redis = client
	}
}

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new factory
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the backend named by backend
func (f *Factory) Create(backend string) (Manager, error) {
	switch backend {
	case config.QueueBackendDatabase, "":
		if f.db == nil {
			return nil, fmt.Errorf("queue backend %q requires a database connection", config.QueueBackendDatabase)
		}
		f.logger.Info("Using database queue backend")
		return NewGormQueueManager(f.db), nil
	case config.QueueBackendRedis:
		if f.redis == nil {
			return nil, fmt.Errorf("queue backend %q requires a redis client", config.QueueBackendRedis)
		}
		f.logger.Info("Using redis queue backend")
		return NewRedisQueueManager(f.redis, ""), nil
	case config.QueueBackendMemory:
		f.logger.Warn("Using in-memory queue backend; queued messages are lost on restart")
		return NewMemoryQueueManager(), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", backend)
	}
}
