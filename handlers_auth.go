package main

import (
	"errors"
	"net/http"
	"strconv"

	"docmon/models"

	"github.com/gin-gonic/gin"
)

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		VendorID *uint  `json:"vendor_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Register(req.Username, req.Password, req.Email, req.VendorID); err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
		case errors.Is(err, ErrVendorNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	writeAudit(nil, "register", "user", 0, req.Username, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	access, refresh, err := Login(req.Username, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	writeAudit(nil, "login", "user", 0, req.Username, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"token": access, "refresh_token": refresh})
}

// refreshHandler exchanges a refresh token for a new pair and rotates the
// stored record.
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	access, refresh, err := RefreshSession(req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "refresh_token": refresh})
}

func logoutHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !Logout(req.RefreshToken) {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func generateResetHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := GenerateResetToken(req.Username, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate reset token"})
		return
	}
	// The token is mailed. Echoing it is a dev/test convenience only;
	// the response is otherwise identical whether the account exists.
	if cfg.ExposeResetToken && token != "" {
		c.JSON(http.StatusOK, gin.H{"reset_token": token})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "a reset link has been sent if the account exists"})
}

func resetPasswordHandler(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ResetPassword(req.Token, req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func meHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing user"})
		return
	}
	resp := gin.H{"id": user.ID, "username": user.Username, "email": user.Email}
	if user.VendorID != nil {
		var v models.Vendor
		if err := db.First(&v, *user.VendorID).Error; err == nil {
			resp["vendor_id"] = v.ID
			resp["vendor_name"] = v.Name
		}
	}
	c.JSON(http.StatusOK, resp)
}

func deleteUserHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := DeleteUser(uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	admin, _ := currentUser(c)
	writeAudit(userIDPtr(admin), "delete", "user", uint(id), "", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
