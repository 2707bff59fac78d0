// Package request assigns and propagates the request correlation ID.
package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"umid/pkg/requestcontext"
)

const HeaderRequestID = "X-Request-ID"

// maxInboundIDLength caps client-supplied IDs before they reach logs.
const maxInboundIDLength = 64

// RequestID reuses a sane inbound X-Request-ID or generates one, stores it in
// context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if reqID == "" || len(reqID) > maxInboundIDLength {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
