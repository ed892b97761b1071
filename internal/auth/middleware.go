package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"virtual_queue/internal/response"
)

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"

	// Ключи контекста gin.
	CtxTenantID = "tenantID"
	CtxStaffID  = "staffID"
)

// Claims — полезная нагрузка токена сотрудника. Токены выпускает внешний сервис авторизации.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken подписывает токен сотрудника. Используется CLI и тестами.
func IssueToken(secret []byte, staffID, tenantID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken проверяет подпись, срок действия и роль.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.TenantID == "" {
		return nil, errors.New("token has no tenant_id")
	}
	return claims, nil
}

// StaffMiddleware пропускает только сотрудников арендатора с действующим access токеном.
func StaffMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "NO_AUTH_HEADER",
				Message: "Требуется авторизация",
			})
			return
		}

		claims, err := ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "INVALID_TOKEN",
				Message: "Неверный или просроченный токен",
				Details: err.Error(),
			})
			return
		}

		if claims.Role != RoleStaff && claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "Недостаточно прав",
			})
			return
		}

		c.Set(CtxTenantID, claims.TenantID)
		c.Set(CtxStaffID, claims.Subject)
		c.Next()
	}
}

// TenantID возвращает арендатора из токена, если запрос прошёл StaffMiddleware.
func TenantID(c *gin.Context) string {
	return c.GetString(CtxTenantID)
}
