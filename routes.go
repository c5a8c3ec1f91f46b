package main

import (
	"net/http"
	"strconv"

	"docmon/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	auth.POST("/register", registerHandler)
	auth.POST("/login", loginHandler)
	auth.POST("/refresh", refreshHandler)
	auth.POST("/logout", logoutHandler)
	auth.POST("/generate-reset", generateResetHandler)
	auth.POST("/reset-password", resetPasswordHandler)

	g := r.Group("")
	g.Use(jwtAuthMiddleware())
	g.GET("/auth/me", meHandler)

	g.POST("/invoices", createInvoiceHandler)
	g.GET("/invoices", listInvoicesHandler)
	g.GET("/invoices/:id", getInvoiceHandler)
	g.POST("/invoices/:id/approve", adminOnly(), approveInvoiceHandler)
	g.POST("/invoices/:id/reject", adminOnly(), rejectInvoiceHandler)

	g.POST("/contracts", createContractHandler)
	g.GET("/contracts", listContractsHandler)
	g.GET("/contracts/:id", getContractHandler)
	g.POST("/contracts/:id/approve", adminOnly(), approveContractHandler)
	g.POST("/contracts/:id/reject", adminOnly(), rejectContractHandler)

	g.POST("/attachments", uploadAttachmentHandler)
	g.GET("/attachments", listAttachmentsHandler)
	g.GET("/attachments/:id", getAttachmentHandler)

	g.GET("/notifications", listNotificationsHandler)
	g.POST("/notifications/:id/read", markNotificationReadHandler)

	admin := g.Group("")
	admin.Use(adminOnly())
	admin.POST("/vendors", createVendorHandler)
	admin.GET("/vendors", listVendorsHandler)
	admin.GET("/vendors/:id", getVendorHandler)
	admin.PUT("/vendors/:id", updateVendorHandler)
	admin.DELETE("/vendors/:id", deleteVendorHandler)
	admin.POST("/budgets", createBudgetHandler)
	admin.GET("/budgets", listBudgetsHandler)
	admin.PUT("/budgets/:id", updateBudgetHandler)
	admin.GET("/audit", listAuditHandler)
	admin.DELETE("/users/:id", deleteUserHandler)
}

// jwtAuthMiddleware verifies the bearer token and loads the user it names.
// The stamp claim must match the user's current security stamp, which is
// what invalidates tokens issued before a password reset.
func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		token, err := jwt.Parse(authHeader[7:], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		uid, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		var user models.User
		if err := db.Where("id = ? AND deleted_at IS NULL", uint(uid)).First(&user).Error; err != nil || !user.Active {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		if stamp, _ := claims["stamp"].(string); stamp != user.SecurityStamp {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Set("user", &user)
		if user.RoleID != nil {
			var r models.Role
			if err := db.First(&r, *user.RoleID).Error; err == nil {
				c.Set("role", r.Name)
			}
		}
		c.Next()
	}
}

func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get("role"); role != "administrator" {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentUser fetches the authenticated user set by jwtAuthMiddleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, _ := c.Get("user")
	if v == nil {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == "administrator"
}
