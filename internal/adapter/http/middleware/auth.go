package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/room-compass/internal/domain/models"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
)

// Auth validates the session token and puts the caller identity into the context.
// Requests without a token pass as anonymous, handlers needing an identity answer 401.
// Browsers cannot set headers on websocket upgrades, so the token may also come
// as the "token" query parameter.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := r.URL.Query().Get("token")
		if header := r.Header.Get("Authorization"); header != "" {
			var err error
			if token, err = extractBearerToken(header); err != nil {
				errorResponse(w, http.StatusUnauthorized, err.Error())
				return
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := h.tokens.Validate(ctx, token)
		if err != nil {
			h.log.Debug(wrap.ErrorCtx(ctx, err), "failed to authenticate user", "error", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = wrap.WithUserID(models.WithIdentity(ctx, id), id.UserID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIdentity allows only authenticated callers.
func (h *Middleware) RequireIdentity(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := models.IdentityFromContext(r.Context()); !ok {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
