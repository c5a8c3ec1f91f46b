package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"docmon/models"
	"docmon/pkg/docscan"

	"github.com/gin-gonic/gin"
)

const maxAttachmentSize = 10 * 1024 * 1024

// uploadAttachmentHandler stores a multipart file against an invoice or a
// contract. Thumbnails and OCR amount suggestions are best effort: a bad
// image marks the record, never the request.
func uploadAttachmentHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	invoiceID := parseFormID(c, "invoice_id")
	contractID := parseFormID(c, "contract_id")
	if (invoiceID == nil) == (contractID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of invoice_id or contract_id required"})
		return
	}

	var folder string
	var parentVendor uint
	if invoiceID != nil {
		var inv models.Invoice
		if err := db.First(&inv, *invoiceID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		parentVendor = inv.VendorID
		folder = filepath.Join("invoices", fmt.Sprint(inv.ID))
	} else {
		var ct models.Contract
		if err := db.First(&ct, *contractID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
			return
		}
		parentVendor = ct.VendorID
		folder = filepath.Join("contracts", fmt.Sprint(ct.ID))
	}
	if !isAdmin(c) && (user.VendorID == nil || parentVendor != *user.VendorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxAttachmentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}

	relPath := filepath.Join(folder, filepath.Base(file.Filename))
	fullPath := filepath.Join(cfg.UploadBase, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	// If an attachment for this parent+filename already exists, return it.
	var existing models.Attachment
	q := db.Where("file_name = ?", file.Filename)
	if invoiceID != nil {
		q = q.Where("invoice_id = ?", *invoiceID)
	} else {
		q = q.Where("contract_id = ?", *contractID)
	}
	if err := q.First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"id": existing.ID, "store_path": existing.StorePath, "scanned_amount": existing.ScannedAmount})
		return
	}

	att := models.Attachment{
		InvoiceID:   invoiceID,
		ContractID:  contractID,
		FileName:    file.Filename,
		StorePath:   relPath,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
	}
	processAttachmentFile(&att, fullPath)
	if err := db.Create(&att).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	writeAudit(&user.ID, "upload", "attachment", att.ID, att.FileName, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"id": att.ID, "store_path": att.StorePath, "thumb_path": att.ThumbPath, "scanned_amount": att.ScannedAmount})
}

// processAttachmentFile fills ThumbPath/ScannedAmount for image files.
// Shared with the background processor in process/.
func processAttachmentFile(att *models.Attachment, fullPath string) {
	if !docscan.IsImage(fullPath) {
		return
	}
	thumbRel := filepath.Join("thumbs", att.StorePath)
	if err := docscan.Thumbnail(fullPath, filepath.Join(cfg.UploadBase, thumbRel), 320); err != nil {
		att.Failed = true
		att.FailedReason = "thumbnail failed: " + err.Error()
		logger.Warn().Err(err).Str("file", att.FileName).Msg("thumbnail failed")
		return
	}
	att.ThumbPath = thumbRel
	if att.InvoiceID == nil {
		return
	}
	amt, conf, err := docscan.ExtractAmount(fullPath)
	if err != nil {
		logger.Debug().Err(err).Str("file", att.FileName).Msg("ocr skipped")
		return
	}
	if amt > 0 && conf > 0.3 {
		att.ScannedAmount = &amt
	}
}

func listAttachmentsHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	q := db.Model(&models.Attachment{})
	if !isAdmin(c) {
		if user.VendorID == nil {
			c.JSON(http.StatusOK, []models.Attachment{})
			return
		}
		q = q.Where(
			"invoice_id IN (?) OR contract_id IN (?)",
			db.Model(&models.Invoice{}).Select("id").Where("vendor_id = ?", *user.VendorID),
			db.Model(&models.Contract{}).Select("id").Where("vendor_id = ?", *user.VendorID),
		)
	}
	var items []models.Attachment
	if err := q.Order("id desc").Limit(100).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func getAttachmentHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var att models.Attachment
	if err := db.First(&att, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !isAdmin(c) {
		var vendorID uint
		if att.InvoiceID != nil {
			var inv models.Invoice
			if err := db.First(&inv, *att.InvoiceID).Error; err == nil {
				vendorID = inv.VendorID
			}
		} else if att.ContractID != nil {
			var ct models.Contract
			if err := db.First(&ct, *att.ContractID).Error; err == nil {
				vendorID = ct.VendorID
			}
		}
		if user.VendorID == nil || vendorID != *user.VendorID {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}
	c.JSON(http.StatusOK, att)
}

func parseFormID(c *gin.Context, field string) *uint {
	v := c.PostForm(field)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil || parsed == 0 {
		return nil
	}
	id := uint(parsed)
	return &id
}
