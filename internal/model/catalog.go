package model

// Category groups listings. Categories form a tree through ParentID.
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	Slug      string `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	ParentID  *uint  `gorm:"index" json:"parent_id,omitempty"`
	IsActive  bool   `gorm:"not null;default:true" json:"is_active"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

type City struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	Province  string `gorm:"type:varchar(100);not null;index" json:"province"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}
