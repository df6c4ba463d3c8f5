package lock

import (
	"fmt"

	"hallbook/pkg/config"
)

func New(cfg *config.Config) (Locker, error) {
	switch cfg.LockBackend {
	case config.BackendNone:
		return Noop{}, nil
	case config.BackendMemory:
		return NewMemory(cfg.LockWait), nil
	case config.BackendRedis:
		if cfg.Client.Redis == nil {
			return nil, fmt.Errorf("redis lock selected but no redis client is connected")
		}
		return NewRedis(cfg.Client.Redis, cfg.LockTTL, cfg.LockWait), nil
	case config.BackendMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo lock selected but no mongo client is connected")
		}
		return NewMongo(cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.LockTTL, cfg.LockWait), nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", cfg.LockBackend)
	}
}
