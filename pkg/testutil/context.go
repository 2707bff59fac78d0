package testutil

import (
	"net/http"

	id "umid/pkg/domain"
	"umid/pkg/requestcontext"
)

// WithIdentity sets the caller identity the way the auth middleware would.
// If userID is not a valid UUID the request is returned unchanged.
func WithIdentity(req *http.Request, userID string, role id.Role) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithIdentity(req.Context(), parsed, role))
}
