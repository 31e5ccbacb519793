package model

import "time"

// CartItem is one line of an authenticated user's cart.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_listing" json:"user_id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_cart_user_listing;index" json:"listing_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string { return "cart" }
