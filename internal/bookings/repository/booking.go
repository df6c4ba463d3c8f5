package repository

import (
	"context"

	"hallbook/pkg/model"
	"hallbook/pkg/store"
)

// BookingRepository loads and saves the whole bookings collection. The engine
// works on full snapshots, so there are no per-record queries here.
type BookingRepository interface {
	Load(ctx context.Context) ([]*model.Booking, error)
	Save(ctx context.Context, bookings []*model.Booking) error
}

type WaitingListRepository interface {
	Load(ctx context.Context) ([]*model.WaitingListEntry, error)
	Save(ctx context.Context, entries []*model.WaitingListEntry) error
}

type storeBookingRepository struct {
	collection *store.Collection[*model.Booking]
}

func NewBookingRepository(s store.Store) BookingRepository {
	return &storeBookingRepository{
		collection: store.NewCollection[*model.Booking](s, store.CollectionBookings),
	}
}

func (r *storeBookingRepository) Load(ctx context.Context) ([]*model.Booking, error) {
	return r.collection.Load(ctx)
}

func (r *storeBookingRepository) Save(ctx context.Context, bookings []*model.Booking) error {
	return r.collection.Save(ctx, bookings)
}

type storeWaitingListRepository struct {
	collection *store.Collection[*model.WaitingListEntry]
}

func NewWaitingListRepository(s store.Store) WaitingListRepository {
	return &storeWaitingListRepository{
		collection: store.NewCollection[*model.WaitingListEntry](s, store.CollectionWaitingList),
	}
}

func (r *storeWaitingListRepository) Load(ctx context.Context) ([]*model.WaitingListEntry, error) {
	return r.collection.Load(ctx)
}

func (r *storeWaitingListRepository) Save(ctx context.Context, entries []*model.WaitingListEntry) error {
	return r.collection.Save(ctx, entries)
}
