package handler

import (
	"net/http"

	"hallbook/internal/identity/service"
	httputil "hallbook/pkg/http"
	"hallbook/pkg/logger"
	"hallbook/pkg/middleware"
	"hallbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type IdentityHandler struct {
	service service.IdentityService
	log     *logger.Logger
}

func NewIdentityHandler(service service.IdentityService, log *logger.Logger) *IdentityHandler {
	return &IdentityHandler{
		service: service,
		log:     log,
	}
}

func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, "Registration successful", result)
}

func (h *IdentityHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Login successful", result)
}

func (h *IdentityHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal := middleware.PrincipalFrom(r.Context())
	if err := h.service.Logout(r.Context(), principal.Token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Logged out", nil)
}

func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	profile, err := h.service.Me(r.Context(), middleware.PrincipalFrom(r.Context()).UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, profile)
}

func (h *IdentityHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var update model.ProfileUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), middleware.PrincipalFrom(r.Context()).UserID, &update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Profile updated", profile)
}

func (h *IdentityHandler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PasswordChange
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), middleware.PrincipalFrom(r.Context()).UserID, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Password changed", nil)
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset answers with the same message whether or not the
// email is registered.
func (h *IdentityHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req resetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	ticket, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	const msg = "If the email exists, a reset link has been sent"
	if ticket == nil {
		httputil.WriteMessage(w, msg, nil)
		return
	}
	httputil.WriteMessage(w, msg, ticket)
}

func (h *IdentityHandler) ResetPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PasswordReset
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Password reset successful", nil)
}

func (h *IdentityHandler) VerifyEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	profile, err := h.service.VerifyEmail(r.Context(), middleware.PrincipalFrom(r.Context()).UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Email verified", profile)
}

func (h *IdentityHandler) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WritePaginated(w, httputil.Page(users, limit, offset), int64(len(users)), limit, offset)
}

func (h *IdentityHandler) RegisterRoutes(router *httprouter.Router) {
	auth := func(next httprouter.Handle) httprouter.Handle {
		return middleware.RequireAuth(h.service, next)
	}

	router.POST("/api/v1/auth/register", h.Register)
	router.POST("/api/v1/auth/login", h.Login)
	router.POST("/api/v1/auth/logout", auth(h.Logout))
	router.GET("/api/v1/auth/me", auth(h.Me))
	router.PATCH("/api/v1/auth/me", auth(h.UpdateProfile))
	router.POST("/api/v1/auth/password", auth(h.ChangePassword))
	router.POST("/api/v1/auth/password/reset-request", h.RequestPasswordReset)
	router.POST("/api/v1/auth/password/reset", h.ResetPassword)
	router.POST("/api/v1/auth/verify-email", auth(h.VerifyEmail))
	router.GET("/api/v1/users", middleware.RequireRole(h.service, h.ListUsers, model.RoleAdmin))
}
