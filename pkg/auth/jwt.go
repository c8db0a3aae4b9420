package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Роли, которым разрешён доступ к управлению политиками
const (
	RolePlatformAdmin = "platform_admin"
	RoleAdmin         = "admin"
	RoleTenantAdmin   = "tenant_admin"
)

var (
	// ErrInvalidToken возвращается при неверной подписи, формате или сроке токена
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInsufficientRole возвращается, если роль не даёт доступа к административным операциям
	ErrInsufficientRole = errors.New("role does not grant policy administration")
)

// AdminClaims содержит поля токена администратора политик
type AdminClaims struct {
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// IsPlatformAdmin сообщает, может ли держатель токена управлять документами любой области
func (c *AdminClaims) IsPlatformAdmin() bool {
	return c.Role == RolePlatformAdmin || c.Role == RoleAdmin
}

// CanManageTenant проверяет доступ к документам конкретного тенанта
func (c *AdminClaims) CanManageTenant(tenantID string) bool {
	if c.IsPlatformAdmin() {
		return true
	}
	return c.Role == RoleTenantAdmin && c.TenantID != "" && c.TenantID == tenantID
}

// AdminTokenService выпускает и проверяет HS256 токены администраторов
type AdminTokenService struct {
	secret []byte
	issuer string
}

// NewAdminTokenService создает сервис токенов; пустой секрет недопустим
func NewAdminTokenService(secret, issuer string) (*AdminTokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("admin JWT secret is required")
	}
	return &AdminTokenService{secret: []byte(secret), issuer: issuer}, nil
}

// Issue подписывает токен с указанной ролью и временем жизни
func (s *AdminTokenService) Issue(subject, role, tenantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role:     role,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия токена и возвращает claims.
// Токены без административной роли отклоняются с ErrInsufficientRole.
func (s *AdminTokenService) Parse(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}

	switch claims.Role {
	case RolePlatformAdmin, RoleAdmin:
	case RoleTenantAdmin:
		if claims.TenantID == "" {
			return nil, ErrInsufficientRole
		}
	default:
		return nil, ErrInsufficientRole
	}
	return claims, nil
}
