package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
)

const sessionKey = "mwallet.session"

// RequireSession resolves the bearer token and rejects the request when no
// live session is attached
func RequireSession(sessions auth.SessionProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessions.CurrentSession(c.Request.Context(), BearerToken(c))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// CurrentSession returns the session RequireSession attached, or nil
func CurrentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*auth.Session)
	return session
}

// BearerToken returns the Authorization header as sent; the session
// provider strips the scheme
func BearerToken(c *gin.Context) string {
	return c.GetHeader("Authorization")
}
