package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	default:
		return false
	}
}

type Preferences struct {
	Notifications bool   `json:"notifications" bson:"notifications"`
	EmailAlerts   bool   `json:"email_alerts" bson:"email_alerts"`
	Theme         string `json:"theme" bson:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, EmailAlerts: true, Theme: "light"}
}

// User is the stored identity record. PasswordHash is persisted but must
// only leave the service through Profile.
type User struct {
	ID            string      `json:"id" bson:"id"`
	Name          string      `json:"name" bson:"name"`
	Email         string      `json:"email" bson:"email"`
	PasswordHash  string      `json:"password_hash" bson:"password_hash"`
	Role          Role        `json:"role" bson:"role"`
	Department    string      `json:"department,omitempty" bson:"department,omitempty"`
	Phone         string      `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfileImage  string      `json:"profile_image,omitempty" bson:"profile_image,omitempty"`
	EmailVerified bool        `json:"email_verified" bson:"email_verified"`
	Preferences   Preferences `json:"preferences" bson:"preferences"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	LastLogin     *time.Time  `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

type UserProfile struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Role          Role        `json:"role"`
	Department    string      `json:"department,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	ProfileImage  string      `json:"profile_image,omitempty"`
	EmailVerified bool        `json:"email_verified"`
	Preferences   Preferences `json:"preferences"`
	CreatedAt     time.Time   `json:"created_at"`
	LastLogin     *time.Time  `json:"last_login,omitempty"`
}

func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Department:    u.Department,
		Phone:         u.Phone,
		ProfileImage:  u.ProfileImage,
		EmailVerified: u.EmailVerified,
		Preferences:   u.Preferences,
		CreatedAt:     u.CreatedAt,
		LastLogin:     u.LastLogin,
	}
}

type Session struct {
	UserID     string    `json:"user_id" bson:"user_id"`
	Token      string    `json:"token" bson:"token"`
	RememberMe bool      `json:"remember_me" bson:"remember_me"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
}

type ResetToken struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	Token     string    `json:"token" bson:"token"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

type RegisterRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Role       Role   `json:"role,omitempty" validate:"omitempty,oneof=student faculty"`
	Department string `json:"department,omitempty" validate:"omitempty,max=100"`
	Phone      string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name         *string      `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Department   *string      `json:"department,omitempty" validate:"omitempty,max=100"`
	Phone        *string      `json:"phone,omitempty" validate:"omitempty,max=20"`
	ProfileImage *string      `json:"profile_image,omitempty" validate:"omitempty,max=500"`
	Preferences  *Preferences `json:"preferences,omitempty"`
}

type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type PasswordReset struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type AuthResult struct {
	User      *UserProfile `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}
