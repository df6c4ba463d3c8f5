// Package store persists named collections of JSON records. Backends are
// pass-through: they hold whole collections and know nothing about the
// records inside them.
package store

import (
	"context"
	"errors"
)

const (
	CollectionUsers         = "users"
	CollectionBookings      = "bookings"
	CollectionWaitingList   = "waitingList"
	CollectionNotifications = "notifications"
	CollectionSessions      = "sessions"
	CollectionResetTokens   = "resetTokens"
)

// Collections lists every collection the application writes.
var Collections = []string{
	CollectionUsers,
	CollectionBookings,
	CollectionWaitingList,
	CollectionNotifications,
	CollectionSessions,
	CollectionResetTokens,
}

var ErrEmptyCollectionName = errors.New("collection name cannot be empty")

type Store interface {
	// Get decodes the collection into dst and reports whether it existed.
	Get(ctx context.Context, collection string, dst any) (bool, error)
	Set(ctx context.Context, collection string, records any) error
	Remove(ctx context.Context, collection string) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Transactional is implemented by backends that can group writes to several
// collections atomically.
type Transactional interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunInTransaction uses the backend transaction when there is one and runs fn
// directly otherwise.
func RunInTransaction(ctx context.Context, s Store, fn func(ctx context.Context) error) error {
	if tx, ok := s.(Transactional); ok {
		return tx.WithinTransaction(ctx, fn)
	}
	return fn(ctx)
}
