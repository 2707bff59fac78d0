// Package ports declares what the access policy engine needs from the rest of
// the system, so the engine can be tested without stores or Redis.
package ports

import (
	"context"

	"umid/internal/accesslog"
	"umid/internal/throttle"
	"umid/internal/totp"
	"umid/internal/umid/models"
	id "umid/pkg/domain"
)

// UMIDReader resolves a credential record.
type UMIDReader interface {
	FindByID(ctx context.Context, umidID id.UMIDID) (*models.UMID, error)
}

// SecretOpener unseals the stored TOTP secret.
type SecretOpener interface {
	Open(sealed, aad []byte) (totp.Secret, error)
}

// Throttle is the rate limiter keyed by (UMID, accessor). Acquire counts the
// attempt before it is verified; Clear gives it back once a code verifies.
type Throttle interface {
	Acquire(ctx context.Context, umidID id.UMIDID, accessorID id.UserID) (*throttle.Result, error)
	Clear(ctx context.Context, umidID id.UMIDID, accessorID id.UserID) error
}

// AuditLogger appends one entry per attempt. A returned error means the
// entry was not recorded.
type AuditLogger interface {
	Emit(ctx context.Context, entry accesslog.Entry) (accesslog.Entry, error)
}
