package main

import (
	"net/http"
	"time"

	"docmon/models"

	"github.com/gin-gonic/gin"
)

func createVendorHandler(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		ContactEmail string `json:"contact_email"`
		Phone        string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v := models.Vendor{Name: req.Name, ContactEmail: req.ContactEmail, Phone: req.Phone, Active: true}
	if err := db.Create(&v).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "vendor already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	admin, _ := currentUser(c)
	writeAudit(userIDPtr(admin), "create", "vendor", v.ID, v.Name, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"id": v.ID})
}

func listVendorsHandler(c *gin.Context) {
	var vendors []models.Vendor
	if err := db.Where("deleted_at IS NULL").Order("id desc").Limit(200).Find(&vendors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, vendors)
}

func getVendorHandler(c *gin.Context) {
	var v models.Vendor
	if err := db.Where("deleted_at IS NULL").First(&v, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func updateVendorHandler(c *gin.Context) {
	var v models.Vendor
	if err := db.Where("deleted_at IS NULL").First(&v, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req struct {
		Name         *string `json:"name"`
		ContactEmail *string `json:"contact_email"`
		Phone        *string `json:"phone"`
		Active       *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != nil {
		v.Name = *req.Name
	}
	if req.ContactEmail != nil {
		v.ContactEmail = *req.ContactEmail
	}
	if req.Phone != nil {
		v.Phone = *req.Phone
	}
	if req.Active != nil {
		v.Active = *req.Active
	}
	if err := db.Save(&v).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "vendor name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	admin, _ := currentUser(c)
	writeAudit(userIDPtr(admin), "update", "vendor", v.ID, v.Name, c.ClientIP())
	c.JSON(http.StatusOK, v)
}

func deleteVendorHandler(c *gin.Context) {
	var v models.Vendor
	if err := db.Where("deleted_at IS NULL").First(&v, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	now := time.Now()
	v.Active = false
	v.DeletedAt = &now
	if err := db.Save(&v).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	admin, _ := currentUser(c)
	writeAudit(userIDPtr(admin), "delete", "vendor", v.ID, v.Name, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "vendor deleted"})
}
