package repository

import (
	"context"

	"hallbook/pkg/model"
	"hallbook/pkg/store"
)

type NotificationRepository interface {
	Load(ctx context.Context) ([]*model.Notification, error)
	Save(ctx context.Context, notifications []*model.Notification) error
}

type storeNotificationRepository struct {
	collection *store.Collection[*model.Notification]
}

func NewNotificationRepository(s store.Store) NotificationRepository {
	return &storeNotificationRepository{
		collection: store.NewCollection[*model.Notification](s, store.CollectionNotifications),
	}
}

func (r *storeNotificationRepository) Load(ctx context.Context) ([]*model.Notification, error) {
	return r.collection.Load(ctx)
}

func (r *storeNotificationRepository) Save(ctx context.Context, notifications []*model.Notification) error {
	return r.collection.Save(ctx, notifications)
}
