package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"docmon/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	errNotPending     = errors.New("not pending")
	errBudgetExceeded = errors.New("budget exceeded")
)

// resolveVendorID picks the vendor an authenticated write applies to:
// vendor users are pinned to their own vendor, administrators must name
// one explicitly.
func resolveVendorID(c *gin.Context, user *models.User, requested *uint) (uint, bool) {
	if user.VendorID != nil {
		return *user.VendorID, true
	}
	if isAdmin(c) && requested != nil {
		return *requested, true
	}
	return 0, false
}

func createInvoiceHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		VendorID  *uint  `json:"vendor_id"`
		Number    string `json:"number" binding:"required"`
		Amount    int64  `json:"amount" binding:"required"`
		Currency  string `json:"currency"`
		IssueDate string `json:"issue_date"` // optional ISO8601
		DueDate   string `json:"due_date"`
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
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	inv := models.Invoice{
		VendorID:    vendorID,
		Number:      req.Number,
		Amount:      req.Amount,
		Currency:    req.Currency,
		IssueDate:   time.Now(),
		Status:      models.InvoiceStatusPending,
		SubmittedBy: user.ID,
	}
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	if req.IssueDate != "" {
		if t, err := time.Parse(time.RFC3339, req.IssueDate); err == nil {
			inv.IssueDate = t
		}
	}
	if req.DueDate != "" {
		if t, err := time.Parse(time.RFC3339, req.DueDate); err == nil {
			inv.DueDate = t
		}
	}
	// prevent duplicate number for the same vendor
	var existing models.Invoice
	if err := db.Where("vendor_id = ? AND number = ?", vendorID, req.Number).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "invoice number already recorded"})
		return
	}
	if err := db.Create(&inv).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "invoice number already recorded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	writeAudit(&user.ID, "submit", "invoice", inv.ID, inv.Number, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"id": inv.ID})
}

// listInvoicesHandler lists invoices; admin sees all, vendor users only
// their vendor's.
func listInvoicesHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Model(&models.Invoice{})
	if !isAdmin(c) {
		if user.VendorID == nil {
			c.JSON(http.StatusOK, []models.Invoice{})
			return
		}
		q = q.Where("vendor_id = ?", *user.VendorID)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var items []models.Invoice
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func getInvoiceHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var inv models.Invoice
	if err := db.First(&inv, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) && (user.VendorID == nil || inv.VendorID != *user.VendorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

// approveInvoiceHandler flips a pending invoice to approved and charges
// the vendor's budget for the issue month. The status flip and the budget
// charge are both conditional updates inside one transaction, so a
// concurrent double-approve or an over-budget approval fails cleanly.
func approveInvoiceHandler(c *gin.Context) {
	admin, _ := currentUser(c)
	var inv models.Invoice
	if err := db.First(&inv, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	now := time.Now()
	period := inv.IssueDate.Format("2006-01")
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", inv.ID, models.InvoiceStatusPending).
			Updates(map[string]interface{}{
				"status":      models.InvoiceStatusApproved,
				"approved_by": admin.ID,
				"approved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNotPending
		}
		var budget models.Budget
		if err := tx.Where("vendor_id = ? AND period = ?", inv.VendorID, period).First(&budget).Error; err != nil {
			return nil // no budget defined for the period; approval stands
		}
		charge := tx.Model(&models.Budget{}).
			Where("id = ? AND consumed + ? <= amount", budget.ID, inv.Amount).
			Updates(map[string]interface{}{"consumed": gorm.Expr("consumed + ?", inv.Amount)})
		if charge.Error != nil {
			return charge.Error
		}
		if charge.RowsAffected == 0 {
			return errBudgetExceeded
		}
		return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("budget_id", budget.ID).Error
	})
	switch err {
	case nil:
	case errNotPending:
		c.JSON(http.StatusConflict, gin.H{"error": "invoice is not pending"})
		return
	case errBudgetExceeded:
		c.JSON(http.StatusConflict, gin.H{"error": "budget exceeded"})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approve failed"})
		return
	}
	writeAudit(&admin.ID, "approve", "invoice", inv.ID, inv.Number, c.ClientIP())
	notifyVendorUsers(inv.VendorID, models.NotifyInvoiceApproved,
		fmt.Sprintf("Invoice %s approved", inv.Number), "")
	c.JSON(http.StatusOK, gin.H{"message": "invoice approved"})
}

func rejectInvoiceHandler(c *gin.Context) {
	admin, _ := currentUser(c)
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	var inv models.Invoice
	if err := db.First(&inv, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	res := db.Model(&models.Invoice{}).
		Where("id = ? AND status = ?", inv.ID, models.InvoiceStatusPending).
		Updates(map[string]interface{}{
			"status":        models.InvoiceStatusRejected,
			"approved_by":   admin.ID,
			"approved_at":   time.Now(),
			"reject_reason": req.Reason,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reject failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "invoice is not pending"})
		return
	}
	writeAudit(&admin.ID, "reject", "invoice", inv.ID, req.Reason, c.ClientIP())
	notifyVendorUsers(inv.VendorID, models.NotifyInvoiceRejected,
		fmt.Sprintf("Invoice %s rejected", inv.Number), req.Reason)
	c.JSON(http.StatusOK, gin.H{"message": "invoice rejected"})
}
