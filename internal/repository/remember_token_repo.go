package repository

import (
	"context"
	"time"

	"marketplace/internal/model"

	"gorm.io/gorm"
)

type RememberTokenRepository interface {
	Create(ctx context.Context, token *model.RememberToken) error
	FindValid(ctx context.Context, tokenHash string, now time.Time) (*model.RememberToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type rememberTokenRepository struct {
	db *gorm.DB
}

func NewRememberTokenRepository(db *gorm.DB) RememberTokenRepository {
	return &rememberTokenRepository{db: db}
}

func (r *rememberTokenRepository) Create(ctx context.Context, token *model.RememberToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

// FindValid returns gorm.ErrRecordNotFound for unknown or expired tokens.
func (r *rememberTokenRepository) FindValid(ctx context.Context, tokenHash string, now time.Time) (*model.RememberToken, error) {
	var token model.RememberToken
	if err := GetDB(ctx, r.db).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *rememberTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	return GetDB(ctx, r.db).Where("token_hash = ?", tokenHash).Delete(&model.RememberToken{}).Error
}

func (r *rememberTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Where("expires_at <= ?", now).Delete(&model.RememberToken{})
	return res.RowsAffected, res.Error
}
