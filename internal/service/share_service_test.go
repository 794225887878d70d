package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildcrm/sharehub/internal/config"
	"buildcrm/sharehub/internal/model"
	"buildcrm/sharehub/internal/repository"
	jwtpkg "buildcrm/sharehub/pkg/jwt"
)

const (
	testTenant      = "tenant-a"
	testOtherTenant = "tenant-b"
)

func newTestService(t *testing.T) (*shareLinkService, repository.ShareLinkRepository) {
	t.Helper()

	repo := repository.NewMemoryShareLinkRepository()
	jwtManager := jwtpkg.NewManager("test-signing-key", "sharehub-test", 15*time.Minute, 2*time.Hour)
	cfg := config.ShareConfig{
		FrontendOrigin: "https://app.example.com",
		DefaultMaxUses: 100,
		CredentialTTL:  2 * time.Hour,
	}

	svc := NewShareLinkService(repo, repository.NewMemoryStateStore(), jwtManager, cfg).(*shareLinkService)
	return svc, repo
}

func createLink(t *testing.T, svc *shareLinkService, in CreateShareLinkInput) *CreateShareLinkResult {
	t.Helper()

	result, err := svc.Create(context.Background(), testTenant, uuid.New(), in)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	return result
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := uuid.New()

	cases := []struct {
		name  string
		in    CreateShareLinkInput
		field string
	}{
		{
			name:  "unknown resource type",
			in:    CreateShareLinkInput{ResourceType: "estimate", ResourceID: "p1", Permissions: []string{"read"}},
			field: "resource_type",
		},
		{
			name:  "empty resource id",
			in:    CreateShareLinkInput{ResourceType: "project", ResourceID: "  ", Permissions: []string{"read"}},
			field: "resource_id",
		},
		{
			name:  "no permissions",
			in:    CreateShareLinkInput{ResourceType: "project", ResourceID: "p1"},
			field: "permissions",
		},
		{
			name:  "negative max uses",
			in:    CreateShareLinkInput{ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"}, MaxUses: -1},
			field: "max_uses",
		},
		{
			name:  "unparseable expiry",
			in:    CreateShareLinkInput{ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"}, ExpiresAt: "tomorrow"},
			field: "expires_at",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, testTenant, creator, tc.in)
			ve, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCreate_URLEmbedsToken(t *testing.T) {
	svc, _ := newTestService(t)

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"},
	})
	assert.Equal(t, "https://app.example.com/share/"+result.Token, result.URL)
}

func TestCreate_UsageCapResolution(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		in         CreateShareLinkInput
		wantCap    int
		wantSingle bool
	}{
		{
			name:    "explicit max uses",
			in:      CreateShareLinkInput{ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"}, MaxUses: 7},
			wantCap: 7,
		},
		{
			name:       "single use pins cap to one",
			in:         CreateShareLinkInput{ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"}, SingleUse: true},
			wantCap:    1,
			wantSingle: true,
		},
		{
			name:    "bounded default when nothing given",
			in:      CreateShareLinkInput{ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"}},
			wantCap: 100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.Create(ctx, testTenant, uuid.New(), tc.in)
			require.NoError(t, err)

			link, err := repo.GetByToken(ctx, result.Token)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCap, link.MaxUses)
			assert.Equal(t, tc.wantSingle, link.SingleUse)
			assert.Equal(t, 0, link.UsedCount)
			assert.Nil(t, link.RevokedAt)
		})
	}
}

func TestCreate_PasswordStoredAsHashOnly(t *testing.T) {
	svc, repo := newTestService(t)

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "meeting", ResourceID: "m1", Permissions: []string{"read"},
		Password: "hunter2",
	})

	link, err := repo.GetByToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, link.PasswordHash)
	assert.NotContains(t, link.PasswordHash, "hunter2")
}

func TestClaim_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read", "comment"},
	})

	claim, err := svc.Claim(context.Background(), result.Token, "", "")
	require.NoError(t, err)
	assert.Equal(t, "p1", claim.ResourceID)
	assert.Equal(t, model.ResourceTypeProject, claim.ResourceType)
	assert.Equal(t, []string{"read", "comment"}, claim.Permissions)
	assert.Equal(t, int64(7200), claim.ExpiresIn)

	claims, err := svc.jwt.Validate(claim.Credential)
	require.NoError(t, err)
	assert.Equal(t, jwtpkg.TokenTypeShare, claims.TokenType)
	assert.Equal(t, jwtpkg.ScopeShare, claims.Scope)
	assert.Equal(t, testTenant, claims.TenantID)
	assert.Equal(t, "p1", claims.ResourceID)
	assert.Equal(t, []string{"read", "comment"}, claims.Permissions)
	assert.Contains(t, claims.Subject, "share:")
}

func TestClaim_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Claim(context.Background(), "no-such-token", "", "")
	assert.ErrorIs(t, err, ErrShareLinkNotFound)
}

func TestClaim_MaxUsesExhaustion(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"}, MaxUses: 2,
	})

	for i := 0; i < 2; i++ {
		_, err := svc.Claim(ctx, result.Token, "", "")
		require.NoError(t, err, "claim %d should succeed", i+1)
	}

	_, err := svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, err, ErrUsageExceeded)

	link, err := repo.GetByToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, link.UsedCount)
}

func TestClaim_SingleUseOverridesMaxUses(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"},
		MaxUses: 5, SingleUse: true,
	})

	_, err := svc.Claim(ctx, result.Token, "", "")
	require.NoError(t, err)

	_, err = svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, err, ErrUsageExceeded)
}

func TestClaim_Revoked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"}, MaxUses: 10,
	})

	require.NoError(t, svc.Revoke(ctx, result.Token, testTenant))

	_, err := svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, err, ErrShareLinkRevoked)

	// Revocation is idempotent.
	assert.NoError(t, svc.Revoke(ctx, result.Token, testTenant))
}

func TestClaim_Expired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Second).Format(time.RFC3339)
	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "meeting", ResourceID: "m1", Permissions: []string{"read"},
		ExpiresAt: past,
	})

	_, err := svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, err, ErrShareLinkExpired)
}

func TestClaim_ExpiryBoundary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"},
		ExpiresAt: expiry.Format(time.RFC3339),
	})

	// Exactly at expires_at the link is already expired.
	svc.now = func() time.Time { return expiry }
	_, err := svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, err, ErrShareLinkExpired)

	// One second earlier it is still claimable.
	svc.now = func() time.Time { return expiry.Add(-time.Second) }
	_, err = svc.Claim(ctx, result.Token, "", "")
	assert.NoError(t, err)
}

func TestClaim_Password(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"},
		Password: "correct horse", MaxUses: 10,
	})

	// Wrong and missing passwords fail with the same error.
	_, err := svc.Claim(ctx, result.Token, "battery staple", "")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, missingErr := svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, missingErr, ErrInvalidPassword)
	assert.Equal(t, err.Error(), missingErr.Error())

	// Failed password attempts consume no usage slot.
	claim, err := svc.Claim(ctx, result.Token, "correct horse", "")
	require.NoError(t, err)
	assert.NotEmpty(t, claim.Credential)
}

func TestClaim_CheckOrder(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Revoked beats expired beats exhausted beats password: a link failing
	// all checks reports revocation first.
	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"},
		ExpiresAt: time.Now().Add(-time.Hour).Format(time.RFC3339),
		Password:  "pw", SingleUse: true,
	})
	require.NoError(t, repo.Revoke(ctx, result.Token, testTenant, time.Now()))

	_, err := svc.Claim(ctx, result.Token, "", "")
	assert.ErrorIs(t, err, ErrShareLinkRevoked)
}

func TestClaim_ConcurrentSingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "invitation", ResourceID: "i1", Permissions: []string{"read"}, SingleUse: true,
	})

	const concurrency = 16
	errs := make([]error, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Claim(ctx, result.Token, "", "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrUsageExceeded), errors.Is(err, ErrClaimConflict):
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent claim must win")
}

func TestClaim_AttemptLimit(t *testing.T) {
	repo := repository.NewMemoryShareLinkRepository()
	jwtManager := jwtpkg.NewManager("test-signing-key", "sharehub-test", 15*time.Minute, 2*time.Hour)
	cfg := config.ShareConfig{
		FrontendOrigin:     "https://app.example.com",
		DefaultMaxUses:     100,
		CredentialTTL:      2 * time.Hour,
		ClaimAttemptLimit:  3,
		ClaimAttemptWindow: time.Minute,
	}
	svc := NewShareLinkService(repo, repository.NewMemoryStateStore(), jwtManager, cfg).(*shareLinkService)
	ctx := context.Background()

	result, err := svc.Create(ctx, testTenant, uuid.New(), CreateShareLinkInput{
		ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"},
		Password: "secret", MaxUses: 100,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Claim(ctx, result.Token, "wrong", "203.0.113.7")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, err = svc.Claim(ctx, result.Token, "secret", "203.0.113.7")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// A different client is unaffected.
	_, err = svc.Claim(ctx, result.Token, "secret", "198.51.100.2")
	assert.NoError(t, err)
}

func TestRevoke_CrossTenantIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"},
	})

	err := svc.Revoke(ctx, result.Token, testOtherTenant)
	assert.ErrorIs(t, err, ErrShareLinkNotFound)

	// The link is still claimable afterwards.
	_, err = svc.Claim(ctx, result.Token, "", "")
	assert.NoError(t, err)
}

func TestList_TenantScopedNewestFirst(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Seed directly so creation times are distinct and ordered.
	base := time.Now().Add(-time.Hour)
	for i, tenant := range []string{testTenant, testOtherTenant, testTenant} {
		link := &model.ShareLink{
			ID:           uuid.New(),
			Token:        uuid.NewString(),
			ResourceType: model.ResourceTypeProject,
			ResourceID:   "p1",
			TenantID:     tenant,
			Permissions:  model.StringSlice{"read"},
			MaxUses:      1,
			CreatedBy:    uuid.New(),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, link))
	}

	views, err := svc.List(ctx, testTenant)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].CreatedAt.After(views[1].CreatedAt))
	for _, v := range views {
		assert.Equal(t, testTenant, v.TenantID)
	}
}

func TestList_DerivedStatusAndNoSecrets(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	active := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "project", ResourceID: "p1", Permissions: []string{"read"},
		Password: "pw",
	})
	revoked := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "file", ResourceID: "f1", Permissions: []string{"read"},
	})
	require.NoError(t, svc.Revoke(ctx, revoked.Token, testTenant))

	exhausted := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "meeting", ResourceID: "m1", Permissions: []string{"read"}, SingleUse: true,
	})
	_, err := svc.Claim(ctx, exhausted.Token, "", "")
	require.NoError(t, err)

	expired := createLink(t, svc, CreateShareLinkInput{
		ResourceType: "invitation", ResourceID: "i1", Permissions: []string{"read"},
		ExpiresAt: time.Now().Add(-time.Minute).Format(time.RFC3339),
	})

	views, err := svc.List(ctx, testTenant)
	require.NoError(t, err)

	byToken := make(map[string]model.ShareLinkView, len(views))
	for _, v := range views {
		byToken[v.Token] = v
		assert.Empty(t, v.PasswordHash)
	}
	assert.Equal(t, model.StatusActive, byToken[active.Token].Status)
	assert.Equal(t, model.StatusRevoked, byToken[revoked.Token].Status)
	assert.Equal(t, model.StatusExhausted, byToken[exhausted.Token].Status)
	assert.Equal(t, model.StatusExpired, byToken[expired.Token].Status)
}
