package model

import (
	"time"
)

const (
	ActionRegister     = "REGISTER"
	ActionLoginSuccess = "LOGIN_SUCCESS"
	ActionLoginFailed  = "LOGIN_FAILED"
	ActionLoginLocked  = "LOGIN_LOCKED"
	ActionLoginResumed = "LOGIN_REMEMBERED"
	ActionLogout       = "LOGOUT"
	ActionCartMerge    = "CART_MERGE"
)

// AuditLog tracks Who, What, and When for authentication and account events
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"` // nil for failed logins of unknown emails
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:text" json:"details"` // serialized JSON payload of the action
	IPAddress  string    `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
