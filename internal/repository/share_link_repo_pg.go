package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"buildcrm/sharehub/internal/model"
)

type pgShareLinkRepository struct {
	db *gorm.DB
}

func NewPGShareLinkRepository(db *gorm.DB) ShareLinkRepository {
	return &pgShareLinkRepository{db: db}
}

func (r *pgShareLinkRepository) Create(ctx context.Context, link *model.ShareLink) error {
	err := r.db.WithContext(ctx).Create(link).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateToken
	}
	return err
}

func (r *pgShareLinkRepository) GetByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	var link model.ShareLink
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *pgShareLinkRepository) GetByTokenAndTenant(ctx context.Context, token, tenantID string) (*model.ShareLink, error) {
	var link model.ShareLink
	err := r.db.WithContext(ctx).
		Where("token = ? AND tenant_id = ?", token, tenantID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *pgShareLinkRepository) ListByTenant(ctx context.Context, tenantID string) ([]model.ShareLink, error) {
	var links []model.ShareLink
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *pgShareLinkRepository) Revoke(ctx context.Context, token, tenantID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.ShareLink{}).
		Where("token = ? AND tenant_id = ?", token, tenantID).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimUse issues a single conditional UPDATE so two racing claims can never
// both consume the last usage slot. RowsAffected tells whether the swap won.
func (r *pgShareLinkRepository) ClaimUse(ctx context.Context, token string, expectedUsedCount, cap int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ShareLink{}).
		Where("token = ? AND revoked_at IS NULL AND used_count = ? AND used_count < ?",
			token, expectedUsedCount, cap).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
