package models

import "time"

// Invoice statuses. Approve/reject are only legal from pending.
const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusApproved = "approved"
	InvoiceStatusRejected = "rejected"
)

// Invoice is a vendor-submitted bill awaiting administrator approval.
// Amount is in the smallest currency unit (e.g. cents).
type Invoice struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	VendorID     uint      `gorm:"index;not null;uniqueIndex:idx_vendor_number"`
	Vendor       Vendor    `gorm:"foreignKey:VendorID;references:ID"`
	Number       string    `gorm:"size:64;not null;uniqueIndex:idx_vendor_number"`
	Amount       int64     `gorm:"not null"`
	Currency     string    `gorm:"size:8;not null;default:USD"`
	IssueDate    time.Time `gorm:"not null"`
	DueDate      time.Time
	Status       string `gorm:"size:16;not null;default:pending;index"`
	SubmittedBy  uint   `gorm:"index;not null"`
	ApprovedBy   *uint
	ApprovedAt   *time.Time
	RejectReason string `gorm:"size:255"`
	BudgetID     *uint  `gorm:"index"` // set when approval consumed a budget
}
