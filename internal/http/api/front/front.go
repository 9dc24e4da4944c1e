package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vpsvoucher/voucher-service/internal/config"
	"github.com/vpsvoucher/voucher-service/internal/http/api/front/handlers"
	"github.com/vpsvoucher/voucher-service/internal/models"
	"github.com/vpsvoucher/voucher-service/internal/security"
	"github.com/vpsvoucher/voucher-service/internal/voucher"
)

// RegisterFrontRoutes registers public and authenticated user routes.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, svc *voucher.Service) {
	if r == nil || db == nil {
		return
	}

	api := r.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	voucherHandler := handlers.NewVoucherHandler(db, svc)

	// The gateway signs webhook deliveries itself; no user token.
	api.POST("/voucher/webhook", voucherHandler.Webhook)

	authed := api.Group("")
	authed.Use(userAuthMiddleware(db, jwtCfg))

	authed.POST("/voucher/buy", voucherHandler.Buy)
	authed.POST("/voucher/complete/:reference", voucherHandler.Complete)
	authed.GET("/voucher/mine", voucherHandler.Mine)
	authed.GET("/voucher/reference/:reference", voucherHandler.GetByReference)
	authed.GET("/voucher/:id", voucherHandler.Get)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
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

		c.Set("userID", user.ID)
		c.Next()
	}
}
