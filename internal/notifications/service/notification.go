package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	notificationserrors "hallbook/internal/notifications/errors"
	"hallbook/internal/notifications/repository"
	"hallbook/internal/notifications/validator"
	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/lock"
	"hallbook/pkg/model"
	"hallbook/pkg/sanitizer"
	"hallbook/pkg/store"

	"github.com/google/uuid"
)

// LockKey guards read-modify-write cycles on the inbox collection.
const LockKey = store.CollectionNotifications

type NotificationService interface {
	Create(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) error
	ClearAll(ctx context.Context, userID string) (int, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	locker    lock.Locker
	validator *validator.NotificationValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewNotificationService(
	repo repository.NotificationRepository,
	locker lock.Locker,
	validator *validator.NotificationValidator,
	cfg *config.Config,
) NotificationService {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &notificationService{
		repo:      repo,
		locker:    locker,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *notificationService) Create(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error) {
	req.Title = sanitizer.SanitizeText(req.Title)
	req.Message = sanitizer.SanitizeText(req.Message)
	if req.Priority == "" {
		req.Priority = model.PriorityNormal
	}

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Notification validation failed", "user_id", req.UserID, "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Notification validation failed", map[string]any{"errors": verrs})
		}
		return nil, apperrors.Validation("Notification validation failed", map[string]any{"error": err.Error()})
	}

	notification := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		Priority:  req.Priority,
		CreatedAt: s.now(),
	}

	err := s.mutate(ctx, func(all []*model.Notification) ([]*model.Notification, bool, error) {
		return append(all, notification), true, nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Notification created",
		"id", notification.ID,
		"user_id", notification.UserID,
		"type", notification.Type,
	)
	return notification, nil
}

// List returns the user's inbox, newest first.
func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := []*model.Notification{}
	for _, n := range all {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread, err := s.List(ctx, userID, true)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput(notificationserrors.ErrInvalidID.Error())
	}

	var marked *model.Notification
	err := s.mutate(ctx, func(all []*model.Notification) ([]*model.Notification, bool, error) {
		for _, n := range all {
			if n.ID != id || n.UserID != userID {
				continue
			}
			marked = n
			if n.Read {
				return all, false, nil
			}
			now := s.now()
			n.Read = true
			n.ReadAt = &now
			return all, true, nil
		}
		return nil, false, apperrors.NotFoundWithID("Notification", id)
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	if err := requireOwner(userID); err != nil {
		return 0, err
	}

	updated := 0
	err := s.mutate(ctx, func(all []*model.Notification) ([]*model.Notification, bool, error) {
		now := s.now()
		for _, n := range all {
			if n.UserID == userID && !n.Read {
				n.Read = true
				n.ReadAt = &now
				updated++
			}
		}
		return all, updated > 0, nil
	})
	if err != nil {
		return 0, err
	}

	s.cfg.Log.Info("Marked notifications as read", "user_id", userID, "updated", updated)
	return updated, nil
}

func (s *notificationService) Delete(ctx context.Context, userID, id string) error {
	if err := requireOwner(userID); err != nil {
		return err
	}

	return s.mutate(ctx, func(all []*model.Notification) ([]*model.Notification, bool, error) {
		kept := make([]*model.Notification, 0, len(all))
		for _, n := range all {
			if n.ID == id && n.UserID == userID {
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == len(all) {
			return nil, false, apperrors.NotFoundWithID("Notification", id)
		}
		return kept, true, nil
	})
}

func (s *notificationService) ClearAll(ctx context.Context, userID string) (int, error) {
	if err := requireOwner(userID); err != nil {
		return 0, err
	}

	deleted := 0
	err := s.mutate(ctx, func(all []*model.Notification) ([]*model.Notification, bool, error) {
		kept := make([]*model.Notification, 0, len(all))
		for _, n := range all {
			if n.UserID == userID {
				deleted++
				continue
			}
			kept = append(kept, n)
		}
		return kept, deleted > 0, nil
	})
	if err != nil {
		return 0, err
	}

	s.cfg.Log.Info("Cleared notifications", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

// mutate runs fn over the whole inbox collection under the inbox lock and
// saves the result when fn reports a change.
func (s *notificationService) mutate(ctx context.Context, fn func([]*model.Notification) ([]*model.Notification, bool, error)) error {
	release, err := s.locker.Acquire(ctx, LockKey)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return apperrors.Conflict("Notifications are being updated by another request. Please try again.")
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return apperrors.Timeout("Timed out waiting for the notifications lock")
		}
		return apperrors.Internal("Failed to acquire notifications lock", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.cfg.Log.Warn("Failed to release notifications lock", "key", LockKey, "error", err)
		}
	}()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}

	updated, changed, err := fn(all)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		s.cfg.Log.Error("Failed to save notifications", "error", err)
		return apperrors.Internal("Failed to save notifications", err)
	}
	return nil
}

func (s *notificationService) load(ctx context.Context) ([]*model.Notification, error) {
	all, err := s.repo.Load(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load notifications", "error", err)
		return nil, apperrors.Internal("Failed to load notifications", err)
	}
	return all, nil
}

func requireOwner(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.InvalidInput(notificationserrors.ErrMissingOwner.Error())
	}
	return nil
}
