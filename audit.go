package main

import (
	"docmon/models"
)

// writeAudit appends one audit row. Failures are logged, never surfaced:
// an audit hiccup must not fail the request that triggered it.
func writeAudit(userID *uint, action, entity string, entityID uint, detail, ip string) {
	entry := models.AuditLog{
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
		IP:       ip,
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.Warn().Err(err).Str("action", action).Str("entity", entity).Msg("audit write failed")
	}
}

// notifyVendorUsers fans a notification out to every active user of a
// vendor.
func notifyVendorUsers(vendorID uint, kind, subject, body string) {
	var users []models.User
	if err := db.Where("vendor_id = ? AND active = ? AND deleted_at IS NULL", vendorID, true).Find(&users).Error; err != nil {
		logger.Warn().Err(err).Uint("vendor_id", vendorID).Msg("notification fanout query failed")
		return
	}
	for _, u := range users {
		n := models.Notification{UserID: u.ID, Kind: kind, Subject: subject, Body: body}
		if err := db.Create(&n).Error; err != nil {
			logger.Warn().Err(err).Uint("user_id", u.ID).Msg("notification create failed")
		}
	}
}

func userIDPtr(u *models.User) *uint {
	if u == nil {
		return nil
	}
	return &u.ID
}
