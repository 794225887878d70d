package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"buildcrm/sharehub/internal/config"
	"buildcrm/sharehub/internal/model"
	"buildcrm/sharehub/internal/repository"
	cryptopkg "buildcrm/sharehub/pkg/crypto"
	jwtpkg "buildcrm/sharehub/pkg/jwt"
)

type CreateShareLinkInput struct {
	ResourceType string
	ResourceID   string
	Permissions  []string
	// ExpiresAt is an optional RFC 3339 instant; empty means never expires.
	ExpiresAt string
	// MaxUses caps successful claims; 0 means not specified.
	MaxUses   int
	Password  string
	Metadata  map[string]interface{}
	SingleUse bool
}

type CreateShareLinkResult struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// ClaimResult carries the minted credential plus the resource binding the
// caller needs to act on the resource. Internal fields (password hash,
// creator, usage counters) are never exposed here.
type ClaimResult struct {
	Credential   string             `json:"credential"`
	Permissions  []string           `json:"permissions"`
	ResourceID   string             `json:"resource_id"`
	ResourceType model.ResourceType `json:"resource_type"`
	ExpiresIn    int64              `json:"expires_in"`
}

type ShareLinkService interface {
	Create(ctx context.Context, tenantID string, createdBy uuid.UUID, in CreateShareLinkInput) (*CreateShareLinkResult, error)
	// Claim redeems a token for a scoped credential. clientKey identifies
	// the caller (e.g. remote IP) for attempt limiting; empty disables the
	// limiter for this call.
	Claim(ctx context.Context, token, password, clientKey string) (*ClaimResult, error)
	Revoke(ctx context.Context, token, tenantID string) error
	List(ctx context.Context, tenantID string) ([]model.ShareLinkView, error)
}

type shareLinkService struct {
	repo     repository.ShareLinkRepository
	attempts repository.StateStore
	jwt      *jwtpkg.Manager
	cfg      config.ShareConfig

	now func() time.Time
}

func NewShareLinkService(
	repo repository.ShareLinkRepository,
	attempts repository.StateStore,
	jwtManager *jwtpkg.Manager,
	cfg config.ShareConfig,
) ShareLinkService {
	return &shareLinkService{
		repo:     repo,
		attempts: attempts,
		jwt:      jwtManager,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *shareLinkService) Create(ctx context.Context, tenantID string, createdBy uuid.UUID, in CreateShareLinkInput) (*CreateShareLinkResult, error) {
	resourceType := model.ResourceType(in.ResourceType)
	if !resourceType.IsValid() {
		return nil, &ValidationError{Field: "resource_type", Reason: "must be one of project, file, invitation, meeting"}
	}
	if strings.TrimSpace(in.ResourceID) == "" {
		return nil, &ValidationError{Field: "resource_id", Reason: "must not be empty"}
	}
	if len(in.Permissions) == 0 {
		return nil, &ValidationError{Field: "permissions", Reason: "must not be empty"}
	}
	if in.MaxUses < 0 {
		return nil, &ValidationError{Field: "max_uses", Reason: "must be a positive integer"}
	}

	var expiresAt *time.Time
	if in.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, in.ExpiresAt)
		if err != nil {
			return nil, &ValidationError{Field: "expires_at", Reason: "must be an RFC 3339 instant"}
		}
		expiresAt = &t
	}

	// Resolve the usage cap: explicit max_uses wins, then single_use pins it
	// to 1, otherwise the bounded default. Unbounded links are not allowed.
	maxUses := in.MaxUses
	if maxUses == 0 {
		if in.SingleUse {
			maxUses = 1
		} else {
			maxUses = s.cfg.DefaultMaxUses
		}
	}

	var passwordHash string
	if in.Password != "" {
		hash, err := cryptopkg.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash share link password: %w", err)
		}
		passwordHash = hash
	}

	token, err := cryptopkg.GenerateShareToken()
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	link := &model.ShareLink{
		Token:        token,
		ResourceType: resourceType,
		ResourceID:   in.ResourceID,
		TenantID:     tenantID,
		Permissions:  model.StringSlice(in.Permissions),
		ExpiresAt:    expiresAt,
		MaxUses:      maxUses,
		SingleUse:    in.SingleUse,
		PasswordHash: passwordHash,
		CreatedBy:    createdBy,
		Metadata:     model.Metadata(in.Metadata),
	}
	if err := s.repo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &CreateShareLinkResult{
		Token: token,
		URL:   strings.TrimSuffix(s.cfg.FrontendOrigin, "/") + "/share/" + token,
	}, nil
}

func (s *shareLinkService) Claim(ctx context.Context, token, password, clientKey string) (*ClaimResult, error) {
	if err := s.checkAttemptLimit(ctx, token, clientKey); err != nil {
		return nil, err
	}

	link, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	// One bounded retry: if the compare-and-swap loses to a concurrent
	// claim, re-read and re-evaluate the policy checks once before giving
	// up with a conflict.
	for attempt := 0; ; attempt++ {
		if err := s.checkClaimPolicy(link, password); err != nil {
			return nil, err
		}

		ok, err := s.repo.ClaimUse(ctx, token, link.UsedCount, link.EffectiveCap())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if ok {
			break
		}
		if attempt >= 1 {
			return nil, ErrClaimConflict
		}

		link, err = s.lookup(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	credential, err := s.jwt.GenerateShareCredential(link.ID, link.TenantID, link.ResourceID, link.Permissions)
	if err != nil {
		return nil, fmt.Errorf("mint share credential: %w", err)
	}

	return &ClaimResult{
		Credential:   credential,
		Permissions:  link.Permissions,
		ResourceID:   link.ResourceID,
		ResourceType: link.ResourceType,
		ExpiresIn:    int64(s.jwt.CredentialTTL().Seconds()),
	}, nil
}

func (s *shareLinkService) Revoke(ctx context.Context, token, tenantID string) error {
	err := s.repo.Revoke(ctx, token, tenantID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrShareLinkNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *shareLinkService) List(ctx context.Context, tenantID string) ([]model.ShareLinkView, error) {
	links, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := s.now()
	views := make([]model.ShareLinkView, 0, len(links))
	for i := range links {
		views = append(views, links[i].View(now))
	}
	return views, nil
}

func (s *shareLinkService) lookup(ctx context.Context, token string) (*model.ShareLink, error) {
	link, err := s.repo.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrShareLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return link, nil
}

// checkClaimPolicy runs the claim checks in order; the first failure wins and
// nothing past it is evaluated.
func (s *shareLinkService) checkClaimPolicy(link *model.ShareLink, password string) error {
	now := s.now()
	switch {
	case link.RevokedAt != nil:
		return ErrShareLinkRevoked
	case link.ExpiresAt != nil && !now.Before(*link.ExpiresAt):
		return ErrShareLinkExpired
	case link.SingleUse && link.UsedCount >= 1:
		return ErrUsageExceeded
	case link.UsedCount >= link.MaxUses:
		return ErrUsageExceeded
	}
	if link.PasswordProtected() && !cryptopkg.CheckPassword(password, link.PasswordHash) {
		return ErrInvalidPassword
	}
	return nil
}

// checkAttemptLimit counts claim attempts per token and client before any
// policy check runs, so probing a password never consumes a usage slot and
// brute force is throttled.
func (s *shareLinkService) checkAttemptLimit(ctx context.Context, token, clientKey string) error {
	if s.cfg.ClaimAttemptLimit <= 0 || s.attempts == nil || clientKey == "" {
		return nil
	}
	key := "share:claim:" + token + ":" + clientKey
	n, err := s.attempts.Incr(ctx, key, s.cfg.ClaimAttemptWindow)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if n > int64(s.cfg.ClaimAttemptLimit) {
		return ErrTooManyAttempts
	}
	return nil
}

// ensure shareLinkService implements ShareLinkService
var _ ShareLinkService = (*shareLinkService)(nil)
