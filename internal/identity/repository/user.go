package repository

import (
	"context"

	"hallbook/pkg/model"
	"hallbook/pkg/store"
)

type UserRepository interface {
	Load(ctx context.Context) ([]*model.User, error)
	Save(ctx context.Context, users []*model.User) error
}

type SessionRepository interface {
	Load(ctx context.Context) ([]*model.Session, error)
	Save(ctx context.Context, sessions []*model.Session) error
}

type ResetTokenRepository interface {
	Load(ctx context.Context) ([]*model.ResetToken, error)
	Save(ctx context.Context, tokens []*model.ResetToken) error
}

func NewUserRepository(s store.Store) UserRepository {
	return store.NewCollection[*model.User](s, store.CollectionUsers)
}

func NewSessionRepository(s store.Store) SessionRepository {
	return store.NewCollection[*model.Session](s, store.CollectionSessions)
}

func NewResetTokenRepository(s store.Store) ResetTokenRepository {
	return store.NewCollection[*model.ResetToken](s, store.CollectionResetTokens)
}
