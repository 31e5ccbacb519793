package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing statuses
const (
	ListingStatusActive   = "active"
	ListingStatusInactive = "inactive"
	ListingStatusSold     = "sold"
)

// Listing is an item offered by a seller.
type Listing struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	SellerID      uint                `gorm:"not null;index" json:"seller_id"`
	Seller        *User               `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Title         string              `gorm:"type:varchar(255);not null" json:"title"`
	Description   string              `gorm:"type:text" json:"description"`
	Price         decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	OriginalPrice decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"original_price"`
	Quantity      int                 `gorm:"not null;default:0" json:"quantity"` // stock
	CategoryID    *uint               `gorm:"index" json:"category_id,omitempty"`
	Category      *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Province      string              `gorm:"type:varchar(100);index" json:"province"`
	City          string              `gorm:"type:varchar(100);index" json:"city"`
	Status        string              `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // active, inactive, sold
	IsActive      bool                `gorm:"not null;default:true" json:"is_active"`
	Images        []ListingImage      `gorm:"foreignKey:ListingID" json:"images,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ListingImage is one picture of a listing; Position orders them.
type ListingImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ListingID uint   `gorm:"not null;index" json:"listing_id"`
	URL       string `gorm:"type:varchar(500);not null" json:"url"`
	Position  int    `gorm:"not null;default:0" json:"position"`
}

// MainImage returns the first image URL, if any.
func (l *Listing) MainImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0].URL
}
