package main

import (
	"net/http"
	"regexp"

	"docmon/models"

	"github.com/gin-gonic/gin"
)

var periodRE = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func createBudgetHandler(c *gin.Context) {
	var req struct {
		VendorID uint   `json:"vendor_id" binding:"required"`
		Period   string `json:"period" binding:"required"` // YYYY-MM
		Amount   int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !periodRE.MatchString(req.Period) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be YYYY-MM"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	var vendor models.Vendor
	if err := db.First(&vendor, req.VendorID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
		return
	}
	b := models.Budget{VendorID: req.VendorID, Period: req.Period, Amount: req.Amount}
	if err := db.Create(&b).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "budget already defined for this vendor and period"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	admin, _ := currentUser(c)
	writeAudit(userIDPtr(admin), "create", "budget", b.ID, b.Period, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"id": b.ID})
}

func listBudgetsHandler(c *gin.Context) {
	q := db.Model(&models.Budget{})
	if v := c.Query("vendor_id"); v != "" {
		q = q.Where("vendor_id = ?", v)
	}
	if p := c.Query("period"); p != "" {
		q = q.Where("period = ?", p)
	}
	var budgets []models.Budget
	if err := q.Order("id desc").Limit(200).Find(&budgets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, budgets)
}

// updateBudgetHandler changes only the cap. Consumed moves exclusively
// through invoice approvals; lowering the cap below current consumption
// is rejected.
func updateBudgetHandler(c *gin.Context) {
	var b models.Budget
	if err := db.First(&b, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount < b.Consumed {
		c.JSON(http.StatusConflict, gin.H{"error": "amount below already-consumed total"})
		return
	}
	if err := db.Model(&b).Update("amount", req.Amount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	admin, _ := currentUser(c)
	writeAudit(userIDPtr(admin), "update", "budget", b.ID, b.Period, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "budget updated"})
}
