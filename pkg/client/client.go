package client

import (
	"context"
	"database/sql"
	"time"

	"hallbook/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Client holds the shared connections a service opened at startup. Only the
// backends selected by configuration are set.
type Client struct {
	Mongo *mongo.Client
	Redis *redis.Client
	MySQL *sql.DB
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) GracefulShutdown(log *logger.Logger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect from MongoDB", "error", err)
		} else {
			log.Info("Disconnected from MongoDB")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		} else {
			log.Info("Closed Redis client")
		}
	}
	if c.MySQL != nil {
		if err := c.MySQL.Close(); err != nil {
			log.Error("Failed to close MySQL pool", "error", err)
		} else {
			log.Info("Closed MySQL pool")
		}
	}
}
