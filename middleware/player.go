package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const playerCookieName = "duel_player_token"

// PlayerTokenMiddleware reads the anonymous player cookie, issuing a fresh
// token when none is present, and attaches it to the request context. The
// token only becomes a Player row once a nickname is submitted.
func PlayerTokenMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(playerCookieName)
		if token == "" {
			token = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     playerCookieName,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals("player_token", token)
		return c.Next()
	}
}

// PlayerToken returns the anonymous token attached by PlayerTokenMiddleware.
func PlayerToken(c *fiber.Ctx) string {
	token, _ := c.Locals("player_token").(string)
	return token
}
