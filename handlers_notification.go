package main

import (
	"net/http"
	"time"

	"docmon/models"

	"github.com/gin-gonic/gin"
)

func listNotificationsHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Where("user_id = ?", user.ID)
	if c.Query("unread") == "1" {
		q = q.Where("read_at IS NULL")
	}
	var items []models.Notification
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func markNotificationReadHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	res := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", c.Param("id"), user.ID).
		Update("read_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}
