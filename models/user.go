package models

import (
	"time"
)

// User model. Users are never hard-deleted: delete tombstones the
// username/email (freeing them for reuse) and sets DeletedAt.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
	Username       string     `gorm:"size:255;not null;unique"`
	Email          string     `gorm:"size:255;not null;unique"`
	HashedPassword []byte     `gorm:"not null"`
	Active         bool       `gorm:"default:true;not null"`
	// SecurityStamp is rotated whenever credentials change; access tokens
	// carry it and stop verifying once it no longer matches.
	SecurityStamp string `gorm:"size:64;not null"`
	LastLoginAt   *time.Time
	VendorID      *uint  `gorm:"index"`
	Vendor        Vendor `gorm:"foreignKey:VendorID;references:ID"`
	RoleID        *uint  `gorm:"index"`
	Role          Role   `gorm:"foreignKey:RoleID;references:ID"`
}
