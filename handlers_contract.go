package main

import (
	"fmt"
	"net/http"
	"time"

	"docmon/models"

	"github.com/gin-gonic/gin"
)

type contractView struct {
	models.Contract
	EffectiveStatus string `json:"effective_status"`
}

func viewContract(c models.Contract, now time.Time) contractView {
	return contractView{Contract: c, EffectiveStatus: c.EffectiveStatus(now)}
}

func createContractHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		VendorID  *uint  `json:"vendor_id"`
		Title     string `json:"title" binding:"required"`
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date" binding:"required"`
		Value     int64  `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	vendorID, ok := resolveVendorID(c, user, req.VendorID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no vendor association"})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil || !end.After(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must follow start_date"})
		return
	}
	ct := models.Contract{
		VendorID:    vendorID,
		Title:       req.Title,
		StartDate:   start,
		EndDate:     end,
		Value:       req.Value,
		Status:      models.ContractStatusPending,
		SubmittedBy: user.ID,
	}
	if err := db.Create(&ct).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	writeAudit(&user.ID, "submit", "contract", ct.ID, ct.Title, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"id": ct.ID})
}

func listContractsHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Model(&models.Contract{})
	if !isAdmin(c) {
		if user.VendorID == nil {
			c.JSON(http.StatusOK, []contractView{})
			return
		}
		q = q.Where("vendor_id = ?", *user.VendorID)
	}
	var items []models.Contract
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	now := time.Now()
	views := make([]contractView, 0, len(items))
	for _, ct := range items {
		views = append(views, viewContract(ct, now))
	}
	c.JSON(http.StatusOK, views)
}

func getContractHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var ct models.Contract
	if err := db.First(&ct, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && (user.VendorID == nil || ct.VendorID != *user.VendorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, viewContract(ct, time.Now()))
}

func approveContractHandler(c *gin.Context) {
	admin, _ := currentUser(c)
	var ct models.Contract
	if err := db.First(&ct, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	res := db.Model(&models.Contract{}).
		Where("id = ? AND status = ?", ct.ID, models.ContractStatusPending).
		Updates(map[string]interface{}{
			"status":      models.ContractStatusApproved,
			"approved_by": admin.ID,
			"approved_at": time.Now(),
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approve failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "contract is not pending"})
		return
	}
	writeAudit(&admin.ID, "approve", "contract", ct.ID, ct.Title, c.ClientIP())
	notifyVendorUsers(ct.VendorID, models.NotifyContractApproved,
		fmt.Sprintf("Contract %q approved", ct.Title), "")
	c.JSON(http.StatusOK, gin.H{"message": "contract approved"})
}

func rejectContractHandler(c *gin.Context) {
	admin, _ := currentUser(c)
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	var ct models.Contract
	if err := db.First(&ct, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	res := db.Model(&models.Contract{}).
		Where("id = ? AND status = ?", ct.ID, models.ContractStatusPending).
		Updates(map[string]interface{}{
			"status":        models.ContractStatusRejected,
			"approved_by":   admin.ID,
			"approved_at":   time.Now(),
			"reject_reason": req.Reason,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reject failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "contract is not pending"})
		return
	}
	writeAudit(&admin.ID, "reject", "contract", ct.ID, req.Reason, c.ClientIP())
	notifyVendorUsers(ct.VendorID, models.NotifyContractRejected,
		fmt.Sprintf("Contract %q rejected", ct.Title), req.Reason)
	c.JSON(http.StatusOK, gin.H{"message": "contract rejected"})
}
