package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/policy-api/pkg/auth"
)

// AdminClaimsKey - ключ контекста Gin, под которым хранятся claims администратора
const AdminClaimsKey = "admin_claims"

// AdminTokenParser проверяет токен администратора
type AdminTokenParser interface {
	Parse(tokenString string) (*auth.AdminClaims, error)
}

// AuthMiddleware обеспечивает аутентификацию административных маршрутов
type AuthMiddleware struct {
	tokens AdminTokenParser
	logger *zap.Logger
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(tokens AdminTokenParser, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger.Named("AuthMiddleware")}
}

// RequireAdmin пропускает только запросы с действительным токеном администратора политик
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}

		// Проверяем формат заголовка Bearer {token}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			return
		}

		claims, err := m.tokens.Parse(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrInsufficientRole) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied", "error_type": "forbidden"})
				return
			}
			m.logger.Debug("rejected admin token", zap.String("ip", c.ClientIP()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		c.Set(AdminClaimsKey, claims)
		c.Next()
	}
}

// AdminClaimsFromContext возвращает claims, установленные RequireAdmin, или nil
func AdminClaimsFromContext(c *gin.Context) *auth.AdminClaims {
	v, ok := c.Get(AdminClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.AdminClaims)
	return claims
}
