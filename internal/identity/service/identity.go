package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	identityerrors "hallbook/internal/identity/errors"
	"hallbook/internal/identity/repository"
	"hallbook/internal/identity/validator"
	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/lock"
	"hallbook/pkg/middleware"
	"hallbook/pkg/model"
	"hallbook/pkg/sanitizer"
	"hallbook/pkg/sealer"
	"hallbook/pkg/store"

	"github.com/google/uuid"
)

// ResetTicket is handed back by RequestPasswordReset. There is no mail
// delivery, so the caller receives the token directly.
type ResetTicket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type IdentityService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*middleware.Principal, error)
	Me(ctx context.Context, userID string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*model.UserProfile, error)
	ChangePassword(ctx context.Context, userID string, req *model.PasswordChange) error
	RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error)
	ResetPassword(ctx context.Context, req *model.PasswordReset) error
	VerifyEmail(ctx context.Context, userID string) (*model.UserProfile, error)
	ListUsers(ctx context.Context) ([]*model.UserProfile, error)
	AdminIDs(ctx context.Context) ([]string, error)
	EnsureAdmin(ctx context.Context) error
}

type identityService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	resets    repository.ResetTokenRepository
	locker    lock.Locker
	validator *validator.IdentityValidator
	sealer    *sealer.Sealer
	cfg       *config.Config
	now       func() time.Time
}

func NewIdentityService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	resets repository.ResetTokenRepository,
	locker lock.Locker,
	validator *validator.IdentityValidator,
	cfg *config.Config,
) (IdentityService, error) {
	s, err := sealer.New(cfg.ResetTokenKey)
	if err != nil {
		return nil, err
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	return &identityService{
		users:     users,
		sessions:  sessions,
		resets:    resets,
		locker:    locker,
		validator: validator,
		sealer:    s,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *identityService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error) {
	req.Name = sanitizer.SanitizeName(req.Name)
	req.Email = sanitizer.SanitizeEmail(req.Email)
	req.Department = sanitizer.SanitizeText(req.Department)
	req.Phone = sanitizer.SanitizePhone(req.Phone)
	if req.Role == "" {
		req.Role = model.RoleStudent
	}

	if err := s.validate(req, "Registration"); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Department:   req.Department,
		Phone:        req.Phone,
		Preferences:  model.DefaultPreferences(),
		CreatedAt:    s.now(),
	}
	if err := s.insertUser(ctx, user); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("User registered", "user_id", user.ID, "role", user.Role)
	return s.issueSession(ctx, user, false)
}

func (s *identityService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResult, error) {
	req.Email = sanitizer.SanitizeEmail(req.Email)
	if err := s.validate(req, "Login"); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.mutateUsers(ctx, func(all []*model.User) (bool, error) {
		u := findByEmail(all, req.Email)
		if u == nil || !verifyPassword(u.PasswordHash, req.Password) {
			return false, apperrors.Unauthorized(capitalize(identityerrors.ErrInvalidCredentials.Error()))
		}
		now := s.now()
		u.LastLogin = &now
		user = u
		return true, nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeUnauthorized) {
			s.cfg.Log.Warn("Login failed", "email", req.Email)
		}
		return nil, err
	}

	s.cfg.Log.Info("User logged in", "user_id", user.ID, "remember_me", req.RememberMe)
	return s.issueSession(ctx, user, req.RememberMe)
}

// Logout drops the session behind token. Unknown tokens are ignored.
func (s *identityService) Logout(ctx context.Context, token string) error {
	hashed := hashToken(token)
	return s.withLock(ctx, store.CollectionSessions, func() error {
		all, err := s.sessions.Load(ctx)
		if err != nil {
			return apperrors.Internal("Failed to load sessions", err)
		}
		kept := make([]*model.Session, 0, len(all))
		for _, sess := range all {
			if sess.Token != hashed {
				kept = append(kept, sess)
			}
		}
		if len(kept) == len(all) {
			return nil
		}
		if err := s.sessions.Save(ctx, kept); err != nil {
			return apperrors.Internal("Failed to save sessions", err)
		}
		s.cfg.Log.Info("User logged out")
		return nil
	})
}

// Verify accepts a token only while it is correctly signed, unexpired and
// still backed by a live session. The role comes from the stored user so
// role changes apply to existing sessions.
func (s *identityService) Verify(ctx context.Context, token string) (*middleware.Principal, error) {
	invalid := apperrors.Unauthorized(capitalize(identityerrors.ErrInvalidToken.Error()))

	claims, err := parseAccessToken(s.cfg.JWTSecret, token, s.now)
	if err != nil {
		s.cfg.Log.Debug("Rejected bearer token", "error", err)
		return nil, invalid
	}

	sessions, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load sessions", err)
	}
	hashed := hashToken(token)
	now := s.now()
	live := false
	for _, sess := range sessions {
		if sess.Token == hashed && sess.UserID == claims.UserID && now.Before(sess.ExpiresAt) {
			live = true
			break
		}
	}
	if !live {
		return nil, invalid
	}

	user, err := s.findUser(ctx, claims.UserID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	return &middleware.Principal{UserID: user.ID, Role: user.Role, Token: token}, nil
}

func (s *identityService) Me(ctx context.Context, userID string) (*model.UserProfile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

func (s *identityService) UpdateProfile(ctx context.Context, userID string, update *model.ProfileUpdate) (*model.UserProfile, error) {
	if update.Name != nil {
		name := sanitizer.SanitizeName(*update.Name)
		update.Name = &name
	}
	if update.Department != nil {
		dept := sanitizer.SanitizeText(*update.Department)
		update.Department = &dept
	}
	if update.Phone != nil {
		phone := sanitizer.SanitizePhone(*update.Phone)
		update.Phone = &phone
	}
	if update.ProfileImage != nil {
		image := sanitizer.SanitizeURL(*update.ProfileImage)
		update.ProfileImage = &image
	}
	if err := s.validate(update, "Profile update"); err != nil {
		return nil, err
	}

	var profile *model.UserProfile
	err := s.mutateUser(ctx, userID, func(u *model.User) error {
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.Department != nil {
			u.Department = *update.Department
		}
		if update.Phone != nil {
			u.Phone = *update.Phone
		}
		if update.ProfileImage != nil {
			u.ProfileImage = *update.ProfileImage
		}
		if update.Preferences != nil {
			u.Preferences = *update.Preferences
		}
		profile = u.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Profile updated", "user_id", userID)
	return profile, nil
}

func (s *identityService) ChangePassword(ctx context.Context, userID string, req *model.PasswordChange) error {
	if err := s.validate(req, "Password change"); err != nil {
		return err
	}

	err := s.mutateUser(ctx, userID, func(u *model.User) error {
		if !verifyPassword(u.PasswordHash, req.CurrentPassword) {
			return apperrors.InvalidInput(capitalize(identityerrors.ErrWrongPassword.Error()))
		}
		hash, err := hashPassword(req.NewPassword, s.cfg.BcryptCost)
		if err != nil {
			return apperrors.Internal("Failed to hash password", err)
		}
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Password changed", "user_id", userID)
	return nil
}

// RequestPasswordReset returns a nil ticket for unknown emails so callers
// can answer the same way either way.
func (s *identityService) RequestPasswordReset(ctx context.Context, email string) (*ResetTicket, error) {
	email = sanitizer.SanitizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("Email is required")
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	user := findByEmail(users, email)
	if user == nil {
		s.cfg.Log.Info("Password reset requested for unknown email")
		return nil, nil
	}

	expiresAt := s.now().Add(s.cfg.ResetTokenTTL)
	token, err := s.sealer.CreateOpaqueToken(user.ID, strconv.FormatInt(expiresAt.Unix(), 10))
	if err != nil {
		return nil, apperrors.Internal("Failed to create reset token", err)
	}

	err = s.withLock(ctx, store.CollectionResetTokens, func() error {
		all, err := s.resets.Load(ctx)
		if err != nil {
			return apperrors.Internal("Failed to load reset tokens", err)
		}
		now := s.now()
		kept := make([]*model.ResetToken, 0, len(all)+1)
		for _, rt := range all {
			// one outstanding token per user
			if rt.UserID == user.ID || !now.Before(rt.ExpiresAt) {
				continue
			}
			kept = append(kept, rt)
		}
		kept = append(kept, &model.ResetToken{UserID: user.ID, Token: hashToken(token), ExpiresAt: expiresAt})
		if err := s.resets.Save(ctx, kept); err != nil {
			return apperrors.Internal("Failed to save reset tokens", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Password reset token issued", "user_id", user.ID)
	return &ResetTicket{Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword consumes a reset token and signs the user out everywhere.
func (s *identityService) ResetPassword(ctx context.Context, req *model.PasswordReset) error {
	if err := s.validate(req, "Password reset"); err != nil {
		return err
	}

	invalid := apperrors.InvalidInput(capitalize(identityerrors.ErrInvalidResetToken.Error()))
	userID, rawExpiry, err := s.sealer.ParseOpaqueToken(req.Token)
	if err != nil {
		return invalid
	}
	expiry, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return invalid
	}

	hashed := hashToken(req.Token)
	err = s.withLock(ctx, store.CollectionResetTokens, func() error {
		all, err := s.resets.Load(ctx)
		if err != nil {
			return apperrors.Internal("Failed to load reset tokens", err)
		}
		kept := make([]*model.ResetToken, 0, len(all))
		found := false
		for _, rt := range all {
			if rt.Token == hashed && rt.UserID == userID {
				found = true
				continue
			}
			kept = append(kept, rt)
		}
		if !found {
			return invalid
		}
		if err := s.resets.Save(ctx, kept); err != nil {
			return apperrors.Internal("Failed to save reset tokens", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !s.now().Before(time.Unix(expiry, 0)) {
		return apperrors.InvalidInput(capitalize(identityerrors.ErrResetTokenExpired.Error()))
	}

	hash, err := hashPassword(req.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	if err := s.mutateUser(ctx, userID, func(u *model.User) error {
		u.PasswordHash = hash
		return nil
	}); err != nil {
		return err
	}

	if err := s.dropSessions(ctx, userID); err != nil {
		s.cfg.Log.Warn("Failed to drop sessions after password reset", "user_id", userID, "error", err)
	}
	s.cfg.Log.Info("Password reset", "user_id", userID)
	return nil
}

func (s *identityService) VerifyEmail(ctx context.Context, userID string) (*model.UserProfile, error) {
	var profile *model.UserProfile
	err := s.mutateUser(ctx, userID, func(u *model.User) error {
		u.EmailVerified = true
		profile = u.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListUsers returns every profile, oldest account first.
func (s *identityService) ListUsers(ctx context.Context) ([]*model.UserProfile, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	out := make([]*model.UserProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (s *identityService) AdminIDs(ctx context.Context) ([]string, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, u := range users {
		if u.Role == model.RoleAdmin {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

// EnsureAdmin creates the configured bootstrap admin if no user holds that
// email yet. It is a no-op when no admin email is configured.
func (s *identityService) EnsureAdmin(ctx context.Context) error {
	email := sanitizer.SanitizeEmail(s.cfg.AdminEmail)
	if email == "" {
		return nil
	}

	hash, err := hashPassword(s.cfg.AdminPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	admin := &model.User{
		ID:            uuid.NewString(),
		Name:          s.cfg.AdminName,
		Email:         email,
		PasswordHash:  hash,
		Role:          model.RoleAdmin,
		EmailVerified: true,
		Preferences:   model.DefaultPreferences(),
		CreatedAt:     s.now(),
	}

	err = s.insertUser(ctx, admin)
	if apperrors.HasCode(err, apperrors.CodeConflict) {
		s.cfg.Log.Debug("Bootstrap admin already exists", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	s.cfg.Log.Info("Bootstrap admin created", "user_id", admin.ID)
	return nil
}

func (s *identityService) issueSession(ctx context.Context, user *model.User, rememberMe bool) (*model.AuthResult, error) {
	ttl := s.cfg.SessionTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	token, err := signAccessToken(s.cfg.JWTSecret, user.ID, user.Role, now, expiresAt)
	if err != nil {
		return nil, apperrors.Internal("Failed to sign token", err)
	}

	err = s.withLock(ctx, store.CollectionSessions, func() error {
		all, err := s.sessions.Load(ctx)
		if err != nil {
			return apperrors.Internal("Failed to load sessions", err)
		}
		kept := make([]*model.Session, 0, len(all)+1)
		for _, sess := range all {
			if now.Before(sess.ExpiresAt) {
				kept = append(kept, sess)
			}
		}
		kept = append(kept, &model.Session{
			UserID:     user.ID,
			Token:      hashToken(token),
			RememberMe: rememberMe,
			CreatedAt:  now,
			ExpiresAt:  expiresAt,
		})
		if err := s.sessions.Save(ctx, kept); err != nil {
			return apperrors.Internal("Failed to save sessions", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.AuthResult{User: user.Profile(), Token: token, ExpiresAt: expiresAt}, nil
}

func (s *identityService) dropSessions(ctx context.Context, userID string) error {
	return s.withLock(ctx, store.CollectionSessions, func() error {
		all, err := s.sessions.Load(ctx)
		if err != nil {
			return err
		}
		kept := make([]*model.Session, 0, len(all))
		for _, sess := range all {
			if sess.UserID != userID {
				kept = append(kept, sess)
			}
		}
		if len(kept) == len(all) {
			return nil
		}
		return s.sessions.Save(ctx, kept)
	})
}

func (s *identityService) insertUser(ctx context.Context, user *model.User) error {
	return s.mutateUsers(ctx, func(all []*model.User) (bool, error) {
		if findByEmail(all, user.Email) != nil {
			return false, apperrors.Conflict(capitalize(identityerrors.ErrEmailTaken.Error()))
		}
		return true, nil
	}, user)
}

func (s *identityService) mutateUser(ctx context.Context, userID string, fn func(*model.User) error) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.InvalidInput("User ID is required")
	}
	return s.mutateUsers(ctx, func(all []*model.User) (bool, error) {
		for _, u := range all {
			if u.ID == userID {
				return true, fn(u)
			}
		}
		return false, apperrors.NotFoundWithID("User", userID)
	})
}

// mutateUsers loads the user collection under its lock, applies fn and
// saves when fn reports a change. Extra users are appended before saving.
func (s *identityService) mutateUsers(ctx context.Context, fn func([]*model.User) (bool, error), add ...*model.User) error {
	return s.withLock(ctx, store.CollectionUsers, func() error {
		all, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(all)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := s.users.Save(ctx, append(all, add...)); err != nil {
			s.cfg.Log.Error("Failed to save users", "error", err)
			return apperrors.Internal("Failed to save users", err)
		}
		return nil
	})
}

func (s *identityService) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return apperrors.Conflict("Accounts are being updated by another request. Please try again.")
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return apperrors.Timeout("Timed out waiting for the " + key + " lock")
		}
		return apperrors.Internal("Failed to acquire "+key+" lock", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.cfg.Log.Warn("Failed to release lock", "key", key, "error", err)
		}
	}()
	return fn()
}

func (s *identityService) findUser(ctx context.Context, userID string) (*model.User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperrors.NotFoundWithID("User", userID)
}

func (s *identityService) loadUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load users", "error", err)
		return nil, apperrors.Internal("Failed to load users", err)
	}
	return users, nil
}

func (s *identityService) validate(req any, what string) error {
	err := s.validator.Validate(req)
	if err == nil {
		return nil
	}
	s.cfg.Log.Warn(what+" validation failed", "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(what+" validation failed", map[string]any{"errors": verrs})
	}
	return apperrors.Validation(what+" validation failed", map[string]any{"error": err.Error()})
}

func findByEmail(users []*model.User, email string) *model.User {
	for _, u := range users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
