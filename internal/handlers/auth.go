package handlers

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/auth"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
)

// RequireAuth verifies the bearer token and stores the caller in the request
// context. The user id used by every order operation comes from here only.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meter := observability.MeterFromContext(ctx)

		principal, err := h.verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			meter.Count("auth.rejected", 1)
			h.loggerFromContext(ctx).Debug("rejected bearer token", "error", err)
			h.respondStatus(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "a valid bearer token is required")
			return
		}

		meter.SetAttributes(attribute.String("user.id", principal.UserID.String()))
		if principal.Role != "" {
			meter.SetAttributes(attribute.String("user.role", principal.Role))
		}
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.Scope().SetUser(sentry.User{ID: principal.UserID.String()})
		}

		logger := h.loggerFromContext(ctx).With("user_id", principal.UserID)
		ctx = logging.WithLogger(ctx, logger)
		ctx = auth.WithPrincipal(ctx, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after RequireAuth.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			h.respondStatus(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "a valid bearer token is required")
			return
		}
		if !principal.IsAdmin() {
			observability.MeterFromContext(r.Context()).Count("auth.forbidden", 1)
			h.respondStatus(w, r, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUserID(r *http.Request) uuid.UUID {
	principal, _ := auth.PrincipalFromContext(r.Context())
	return principal.UserID
}
