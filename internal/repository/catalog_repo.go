package repository

import (
	"context"

	"marketplace/internal/model"

	"gorm.io/gorm"
)

type CatalogRepository interface {
	Categories(ctx context.Context, limit int) ([]model.Category, error)
	Cities(ctx context.Context, limit int) ([]model.City, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// Categories returns active categories in display order. limit <= 0 means no limit.
func (r *catalogRepository) Categories(ctx context.Context, limit int) ([]model.Category, error) {
	var categories []model.Category
	db := GetDB(ctx, r.db).Where("is_active = ?", true).Order("sort_order asc, name asc")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *catalogRepository) Cities(ctx context.Context, limit int) ([]model.City, error) {
	var cities []model.City
	db := GetDB(ctx, r.db).Order("sort_order asc, name asc")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}
