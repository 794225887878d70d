package repository

import (
	"context"
	"errors"
	"time"

	"buildcrm/sharehub/internal/model"
)

var (
	// ErrNotFound is returned when no share link matches the lookup. Tenant-
	// scoped lookups return it for cross-tenant tokens too, so existence
	// never leaks across tenants.
	ErrNotFound = errors.New("share link not found")
	// ErrDuplicateToken is returned when an insert collides on the token.
	ErrDuplicateToken = errors.New("share link token already exists")
)

// ShareLinkRepository is the durable store of share links. It is the single
// writer of truth; the service never caches link state across calls.
type ShareLinkRepository interface {
	Create(ctx context.Context, link *model.ShareLink) error
	GetByToken(ctx context.Context, token string) (*model.ShareLink, error)
	GetByTokenAndTenant(ctx context.Context, token, tenantID string) (*model.ShareLink, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.ShareLink, error)

	// Revoke sets revoked_at unconditionally for the tenant's link, making it
	// permanently inert. Revoking an already-revoked link succeeds.
	Revoke(ctx context.Context, token, tenantID string, at time.Time) error

	// ClaimUse is the compare-and-swap consuming one usage slot: it
	// increments used_count only if the stored count still equals
	// expectedUsedCount, the link is not revoked, and the count is below
	// cap. Returns false (and no error) when the swap did not apply.
	ClaimUse(ctx context.Context, token string, expectedUsedCount, cap int) (bool, error)
}
