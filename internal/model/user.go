package model

import (
	"time"
)

// User types
const (
	UserTypeBuyer  = "buyer"
	UserTypeSeller = "seller"
	UserTypeBoth   = "both"
)

// User statuses
const (
	UserStatusActive    = "active"
	UserStatusPending   = "pending"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"
)

// User is a marketplace account. Accounts are never hard-deleted; status controls access.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(100);not null" json:"name"`
	Surname       string     `gorm:"type:varchar(100);not null" json:"surname"`
	Email         string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"` // stored lower-cased
	PasswordHash  string     `gorm:"type:varchar(255);not null" json:"-"`
	UserType      string     `gorm:"type:varchar(20);not null;default:'buyer'" json:"user_type"` // buyer, seller, both
	Phone         string     `gorm:"type:varchar(30)" json:"phone,omitempty"`
	AddressLine   string     `gorm:"type:varchar(255)" json:"address_line,omitempty"`
	City          string     `gorm:"type:varchar(100)" json:"city,omitempty"`
	Province      string     `gorm:"type:varchar(100)" json:"province,omitempty"`
	PostalCode    string     `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Avatar        string     `gorm:"type:varchar(512)" json:"avatar,omitempty"` // image URL
	ReferralCode  string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"referral_code"`
	ReferredBy    *uint      `gorm:"index" json:"referred_by,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	EmailVerified bool       `gorm:"not null;default:false" json:"email_verified"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// DisplayName is what the session and the UI show for the user.
func (u *User) DisplayName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

// RememberToken backs the long-lived "remember me" cookie. Only the SHA-256 of the
// cookie value is stored.
type RememberToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	TokenHash string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
