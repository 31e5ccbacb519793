package repository

import (
	"context"
	"strings"

	"marketplace/internal/model"

	"gorm.io/gorm"
)

// ListingFilter narrows ListingRepository.List. Zero values are ignored.
type ListingFilter struct {
	CategoryID uint
	City       string
	Province   string
	Query      string
}

type ListingRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Listing, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Listing, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Listing, error)
	List(ctx context.Context, filter ListingFilter, page, limit int) ([]model.Listing, int64, error)
	ListBySeller(ctx context.Context, sellerID uint, page, limit int) ([]model.Listing, int64, error)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) FindByID(ctx context.Context, id uint) (*model.Listing, error) {
	var listing model.Listing
	if err := GetDB(ctx, r.db).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Category").
		First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDForUpdate locks the listing row for the rest of the surrounding transaction.
func (r *listingRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Listing, error) {
	var listing model.Listing
	if err := forUpdate(ctx, GetDB(ctx, r.db)).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDs loads listings with their images. Missing ids are absent from the map.
func (r *listingRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Listing, error) {
	out := make(map[uint]*model.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var listings []model.Listing
	if err := GetDB(ctx, r.db).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("id IN ?", ids).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	for i := range listings {
		out[listings[i].ID] = &listings[i]
	}
	return out, nil
}

// List returns active, sellable listings, newest first.
func (r *listingRepository) List(ctx context.Context, filter ListingFilter, page, limit int) ([]model.Listing, int64, error) {
	var listings []model.Listing
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Listing{}).
		Where("is_active = ? AND status = ?", true, model.ListingStatusActive)
	if filter.CategoryID != 0 {
		db = db.Where("category_id = ?", filter.CategoryID)
	}
	if filter.City != "" {
		db = db.Where("city = ?", filter.City)
	}
	if filter.Province != "" {
		db = db.Where("province = ?", filter.Province)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("created_at desc, id desc").Offset(offset).Limit(limit).
		Find(&listings).Error; err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// ListBySeller returns every listing of a seller whatever its status.
func (r *listingRepository) ListBySeller(ctx context.Context, sellerID uint, page, limit int) ([]model.Listing, int64, error) {
	var listings []model.Listing
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Listing{}).Where("seller_id = ?", sellerID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Order("created_at desc, id desc").Offset(offset).Limit(limit).
		Find(&listings).Error; err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}
