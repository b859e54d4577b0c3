package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID    = "userID"
	ctxUserEmail = "userEmail"
	ctxRole      = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ctxUserEmail)
}

// GetActor returns the authenticated actor. ID is empty when the request is anonymous.
func GetActor(c *gin.Context) Actor {
	actor := Actor{ID: GetUserID(c)}
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(Role); ok {
			actor.Role = r
		}
	}
	return actor
}

// SetActor stores an actor on the context. Used by tests and internal callers.
func SetActor(c *gin.Context, a Actor) {
	c.Set(ctxUserID, a.ID)
	c.Set(ctxRole, a.Role)
}
