package main

import (
	"net/http"

	"docmon/models"

	"github.com/gin-gonic/gin"
)

// listAuditHandler is admin-only (enforced in routing).
func listAuditHandler(c *gin.Context) {
	q := db.Model(&models.AuditLog{})
	if e := c.Query("entity"); e != "" {
		q = q.Where("entity = ?", e)
	}
	if a := c.Query("action"); a != "" {
		q = q.Where("action = ?", a)
	}
	var items []models.AuditLog
	if err := q.Order("id desc").Limit(500).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}
