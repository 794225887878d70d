package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"buildcrm/sharehub/internal/model"
)

// memoryShareLinkRepository is a mutex-guarded in-memory store honoring the
// same contract as the PostgreSQL implementation, including the ClaimUse
// compare-and-swap. Used by tests and local development.
type memoryShareLinkRepository struct {
	mu      sync.Mutex
	byToken map[string]*model.ShareLink
}

func NewMemoryShareLinkRepository() ShareLinkRepository {
	return &memoryShareLinkRepository{
		byToken: make(map[string]*model.ShareLink),
	}
}

func (r *memoryShareLinkRepository) Create(_ context.Context, link *model.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byToken[link.Token]; exists {
		return ErrDuplicateToken
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	stored := *link
	r.byToken[link.Token] = &stored
	return nil
}

func (r *memoryShareLinkRepository) GetByToken(_ context.Context, token string) (*model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *link
	return &copied, nil
}

func (r *memoryShareLinkRepository) GetByTokenAndTenant(_ context.Context, token, tenantID string) (*model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byToken[token]
	if !ok || link.TenantID != tenantID {
		return nil, ErrNotFound
	}
	copied := *link
	return &copied, nil
}

func (r *memoryShareLinkRepository) ListByTenant(_ context.Context, tenantID string) ([]model.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links := make([]model.ShareLink, 0)
	for _, link := range r.byToken {
		if link.TenantID == tenantID {
			links = append(links, *link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

func (r *memoryShareLinkRepository) Revoke(_ context.Context, token, tenantID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byToken[token]
	if !ok || link.TenantID != tenantID {
		return ErrNotFound
	}
	revokedAt := at
	link.RevokedAt = &revokedAt
	link.UpdatedAt = at
	return nil
}

func (r *memoryShareLinkRepository) ClaimUse(_ context.Context, token string, expectedUsedCount, cap int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byToken[token]
	if !ok {
		return false, nil
	}
	if link.RevokedAt != nil || link.UsedCount != expectedUsedCount || link.UsedCount >= cap {
		return false, nil
	}
	link.UsedCount++
	link.UpdatedAt = time.Now()
	return true, nil
}
