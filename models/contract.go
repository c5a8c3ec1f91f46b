package models

import "time"

const (
	ContractStatusPending  = "pending"
	ContractStatusApproved = "approved"
	ContractStatusRejected = "rejected"
	// ContractStatusExpired is computed at read time from EndDate; it is
	// never stored.
	ContractStatusExpired = "expired"
)

// Contract is a vendor agreement with a validity window. Value is in the
// smallest currency unit.
type Contract struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	VendorID     uint      `gorm:"index;not null"`
	Vendor       Vendor    `gorm:"foreignKey:VendorID;references:ID"`
	Title        string    `gorm:"size:255;not null"`
	StartDate    time.Time `gorm:"not null"`
	EndDate      time.Time `gorm:"not null"`
	Value        int64     `gorm:"not null"`
	Status       string    `gorm:"size:16;not null;default:pending;index"`
	SubmittedBy  uint      `gorm:"index;not null"`
	ApprovedBy   *uint
	ApprovedAt   *time.Time
	RejectReason string `gorm:"size:255"`
}

// EffectiveStatus folds time-based expiry into the stored status.
func (c *Contract) EffectiveStatus(now time.Time) string {
	if c.Status == ContractStatusApproved && now.After(c.EndDate) {
		return ContractStatusExpired
	}
	return c.Status
}
