package database

import (
	"context"
	"fmt"
	"log/slog"

	"marketplace/internal/model"

	"github.com/nrednav/cuid2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const demoSellerEmail = "seller@demo.local"

// SeedDemoData fills an empty catalogue with a few categories, cities, a demo
// seller and listings. It does nothing when categories already exist.
func SeedDemoData(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := []model.Category{
			{Name: "Electronics", Slug: "electronics", IsActive: true, SortOrder: 1},
			{Name: "Home & Garden", Slug: "home-garden", IsActive: true, SortOrder: 2},
			{Name: "Fashion", Slug: "fashion", IsActive: true, SortOrder: 3},
			{Name: "Books", Slug: "books", IsActive: true, SortOrder: 4},
		}
		if err := tx.Create(&categories).Error; err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}

		cities := []model.City{
			{Name: "Milano", Province: "MI", SortOrder: 1},
			{Name: "Roma", Province: "RM", SortOrder: 2},
			{Name: "Torino", Province: "TO", SortOrder: 3},
			{Name: "Napoli", Province: "NA", SortOrder: 4},
		}
		if err := tx.Create(&cities).Error; err != nil {
			return fmt.Errorf("seed cities: %w", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		seller := model.User{
			Name:         "Demo",
			Surname:      "Seller",
			Email:        demoSellerEmail,
			PasswordHash: string(hash),
			UserType:     model.UserTypeSeller,
			City:         "Milano",
			Province:     "MI",
			ReferralCode: cuid2.Generate(),
			Status:       model.UserStatusActive,
		}
		if err := tx.Create(&seller).Error; err != nil {
			return fmt.Errorf("seed seller: %w", err)
		}

		listings := []model.Listing{
			demoListing(seller.ID, categories[0].ID, "Used laptop", "120.00", 3, cities[0]),
			demoListing(seller.ID, categories[0].ID, "Headphones", "35.50", 0, cities[1]),
			demoListing(seller.ID, categories[1].ID, "Wooden chair", "45.00", 8, cities[2]),
			demoListing(seller.ID, categories[3].ID, "Novel collection", "18.90", 1, cities[3]),
		}
		if err := tx.Create(&listings).Error; err != nil {
			return fmt.Errorf("seed listings: %w", err)
		}

		logger.Info("demo data seeded", "categories", len(categories), "cities", len(cities), "listings", len(listings))
		return nil
	})
}

func demoListing(sellerID, categoryID uint, title, price string, qty int, city model.City) model.Listing {
	return model.Listing{
		SellerID:   sellerID,
		Title:      title,
		Price:      decimal.RequireFromString(price),
		Quantity:   qty,
		CategoryID: &categoryID,
		Province:   city.Province,
		City:       city.Name,
		Status:     model.ListingStatusActive,
		IsActive:   true,
	}
}
