package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/http/api/admin/handlers"
	"github.com/vpsvoucher/voucher-service/internal/models"
	"github.com/vpsvoucher/voucher-service/internal/security"
	"github.com/vpsvoucher/voucher-service/internal/voucher"
)

// RegisterAdminRoutes registers administrator inventory routes.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, uploader *voucher.Uploader, inventory *voucher.Inventory) {
	if r == nil || db == nil {
		return
	}

	api := r.Group("/api/v1")
	api.Use(adminAuthMiddleware(db, jwtCfg))

	voucherHandler := handlers.NewVoucherAdminHandler(db, uploader, inventory)
	api.POST("/voucher/upload", voucherHandler.Upload)
	api.POST("/voucher", voucherHandler.Create)
	api.GET("/voucher", voucherHandler.List)
	api.DELETE("/voucher/used", voucherHandler.PurgeUsed)
}

// adminAuthMiddleware validates user JWTs and requires the
// administrator capability.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, strings.TrimSpace(token))
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
