package client

import (
	"context"
	"database/sql"
	"time"

	"hallbook/pkg/logger"

	"github.com/go-sql-driver/mysql"
)

// SetMySQL opens a pooled connection. The DSN is parsed so parseTime and UTC
// are always enforced regardless of what the operator supplied.
func (c *Client) SetMySQL(log *logger.Logger, dsn string, connTimeout time.Duration) {
	mcfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		log.Fatal("Invalid MySQL DSN", "error", err)
	}
	mcfg.ParseTime = true
	mcfg.Loc = time.UTC

	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		log.Fatal("Failed to create MySQL connector", "error", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping MySQL", "error", err)
	}

	log.Info("Successfully connected to MySQL", "addr", mcfg.Addr, "database", mcfg.DBName)
	c.MySQL = db
}
