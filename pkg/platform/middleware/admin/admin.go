package admin

import (
	"log/slog"
	"net/http"

	id "umid/pkg/domain"
	request "umid/pkg/platform/middleware/request"
	"umid/pkg/requestcontext"
)

// RequireAdmin rejects callers whose asserted role is not admin.
// Must run after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != id.RoleAdmin {
				logger.WarnContext(ctx, "admin role required",
					"role", requestcontext.Role(ctx),
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
