package web

import (
	"github.com/dukex/operion-forms/pkg/session"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	SessionCookie = "operion_session"
	RoleHeader    = "X-Workflow-Role"

	sessionIDKey = "session_id"
)

// SessionMiddleware makes sure every request carries a session id cookie.
// Unknown or malformed ids are replaced.
func SessionMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Cookies(SessionCookie)

		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()

			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals(sessionIDKey, id)

		return c.Next()
	}
}

func sessionID(c fiber.Ctx) string {
	id, _ := c.Locals(sessionIDKey).(string)

	return id
}

func sessionStore(c fiber.Ctx, store session.Store) session.Store {
	return session.Scope(store, sessionID(c))
}
