package middleware

import (
	"context"
	"net/http"

	apperrors "hallbook/pkg/errors"
	httputil "hallbook/pkg/http"
	"hallbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const principalKey contextKey = "principal"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Role   model.Role
	Token  string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// TokenVerifier resolves a bearer token to the caller it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller stored by RequireAuth, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified principal on the request context.
func RequireAuth(verifier TokenVerifier, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := BearerToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing bearer token"))
			return
		}

		principal, err := verifier.Verify(r.Context(), token)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		next(w, r.WithContext(WithPrincipal(r.Context(), principal)), ps)
	}
}

// RequireRole is RequireAuth plus a role check.
func RequireRole(verifier TokenVerifier, next httprouter.Handle, roles ...model.Role) httprouter.Handle {
	allowed := make(map[model.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return RequireAuth(verifier, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		principal := PrincipalFrom(r.Context())
		if principal == nil || !allowed[principal.Role] {
			httputil.WriteError(w, apperrors.Forbidden("You do not have permission to perform this action"))
			return
		}
		next(w, r, ps)
	})
}
