package models

import "time"

// Attachment is a file stored against an invoice or a contract (exactly
// one of the two FKs is set). ScannedAmount holds the OCR-suggested total
// for invoice images; Failed keeps broken files visible for review
// instead of deleting the record.
type Attachment struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	InvoiceID     *uint  `gorm:"index"`
	ContractID    *uint  `gorm:"index"`
	FileName      string `gorm:"size:255;not null"`
	StorePath     string `gorm:"column:store_path;size:512"` // relative to the upload base
	ThumbPath     string `gorm:"size:512"`
	ContentType   string `gorm:"size:128"`
	Size          int64
	ScannedAmount *int64
	Failed        bool   `gorm:"default:false;index"`
	FailedReason  string `gorm:"size:255"`
}
