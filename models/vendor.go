package models

import "time"

// Vendor is a supplier organisation. Users can be attached to a vendor;
// invoices, contracts and budgets always belong to one.
type Vendor struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time `gorm:"index"`
	Name         string     `gorm:"size:255;not null;uniqueIndex"`
	ContactEmail string     `gorm:"size:255"`
	Phone        string     `gorm:"size:64"`
	Active       bool       `gorm:"default:true;not null"`
}
