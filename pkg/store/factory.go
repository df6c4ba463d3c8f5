package store

import (
	"context"
	"fmt"

	"hallbook/pkg/config"
)

// New builds the backend selected by STORE_BACKEND. cfg.Connect must have
// run first for the networked backends.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo store selected but no mongo client is connected")
		}
		return NewMongoStore(cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.StoreTimeout), nil
	case config.BackendRedis:
		if cfg.Client.Redis == nil {
			return nil, fmt.Errorf("redis store selected but no redis client is connected")
		}
		return NewRedisStore(cfg.Client.Redis, DefaultRedisPrefix, cfg.StoreTimeout), nil
	case config.BackendMySQL:
		if cfg.Client.MySQL == nil {
			return nil, fmt.Errorf("mysql store selected but no mysql pool is open")
		}
		s := NewMySQLStore(cfg.Client.MySQL, cfg.StoreTimeout)
		if err := s.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
