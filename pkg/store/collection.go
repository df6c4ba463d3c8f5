package store

import (
	"context"
	"fmt"
)

// Collection is a typed view over one named collection.
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](s Store, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

// Load returns every record. A missing collection loads as empty.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	var records []T
	found, err := c.store.Get(ctx, c.name, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.name, err)
	}
	if !found || records == nil {
		return []T{}, nil
	}
	return records, nil
}

func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	if err := c.store.Set(ctx, c.name, records); err != nil {
		return fmt.Errorf("failed to save %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T]) Remove(ctx context.Context) error {
	if err := c.store.Remove(ctx, c.name); err != nil {
		return fmt.Errorf("failed to remove %s: %w", c.name, err)
	}
	return nil
}
