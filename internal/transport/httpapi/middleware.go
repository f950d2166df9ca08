package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ReviewQueue/internal/domain"
	"ReviewQueue/internal/ports"
)

const userKey = "reviewer"

// Claims is the token payload issued by the site's login service.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and loads the reviewer it names.
func AuthMiddleware(secret []byte, users ports.UserStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID == 0 {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := users.LoadUser(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.Warn("reviewer lookup failed", "user_id", claims.UserID, "error", err)
			abort(c, http.StatusUnauthorized, "User not found")
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequestLogger logs one line per request with the handler's logger.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(started),
		)
	}
}

func currentUser(c *gin.Context) domain.User {
	v, _ := c.Get(userKey)
	user, _ := v.(domain.User)
	return user
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
