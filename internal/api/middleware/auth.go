package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

// BearerSecret rejects requests whose Authorization header does not carry
// exactly "Bearer <secret>". An empty secret rejects everything.
func BearerSecret(secret string) fiber.Handler {
	want := []byte(secret)

	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if len(want) == 0 || token == "" {
			return domain.ErrUnauthorized
		}
		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			return domain.ErrUnauthorized
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
