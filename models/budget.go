package models

import "time"

// Budget caps approved invoice spend per vendor per month. Consumed is
// only ever increased through a conditional update so concurrent
// approvals cannot overshoot Amount.
type Budget struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	VendorID  uint   `gorm:"index;not null;uniqueIndex:idx_vendor_period"`
	Vendor    Vendor `gorm:"foreignKey:VendorID;references:ID"`
	Period    string `gorm:"size:7;not null;uniqueIndex:idx_vendor_period"` // YYYY-MM
	Amount    int64  `gorm:"not null"`
	Consumed  int64  `gorm:"not null;default:0"`
}
