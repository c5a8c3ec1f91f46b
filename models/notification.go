package models

import "time"

// Notification kinds.
const (
	NotifyInvoiceApproved  = "invoice_approved"
	NotifyInvoiceRejected  = "invoice_rejected"
	NotifyContractApproved = "contract_approved"
	NotifyContractRejected = "contract_rejected"
)

// Notification is an in-app message for one user. ReadAt doubles as the
// read flag.
type Notification struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"index;not null"`
	Kind      string `gorm:"size:32;not null"`
	Subject   string `gorm:"size:255;not null"`
	Body      string `gorm:"size:1024"`
	ReadAt    *time.Time
}
