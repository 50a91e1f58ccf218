// middleware/auth.go
package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// AccountContextMiddleware extracts the signed caller identity set by the
// Gateway. Every state-changing route requires it: the engine is invoked
// once per submitted action with an already-authenticated account.
func AccountContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := c.Get("X-Account-ID")
		if account == "" {
			log.Printf("❌ [ACCOUNT_CTX] X-Account-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Account-ID — request must come through gateway with a signed caller",
			})
		}

		c.Locals("account_id", account)
		return c.Next()
	}
}
