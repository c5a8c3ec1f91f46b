package models

import "time"

// AuditLog is an append-only trail of who did what. Rows are never
// updated or deleted.
type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    *uint  `gorm:"index"` // nil for unauthenticated actions (e.g. failed logins)
	Action    string `gorm:"size:64;not null;index"`
	Entity    string `gorm:"size:32;index"`
	EntityID  uint   `gorm:"index"`
	Detail    string `gorm:"size:512"`
	IP        string `gorm:"size:64"`
}
