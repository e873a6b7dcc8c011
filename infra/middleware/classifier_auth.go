package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"classifier_server/pkg/apperr"
)

// ServiceAuth guards admin routes with an HMAC-signed bearer token.
func ServiceAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return apperr.New(apperr.CodeConfigError, "admin auth not configured", fiber.StatusServiceUnavailable)
		}

		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return apperr.New(apperr.CodeUnauthorized, "missing bearer token", fiber.StatusUnauthorized)
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return apperr.New(apperr.CodeInvalidToken, "invalid token", fiber.StatusUnauthorized)
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Locals("subject", sub)
			}
		}

		return c.Next()
	}
}
