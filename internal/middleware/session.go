package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/companion/pkg/model"
)

// LoginPath is where anonymous users are sent
const LoginPath = "/login"

// UserKey holds the current model.User for protected handlers
const UserKey = "user"

// SessionReader reports the current session
type SessionReader interface {
	Current() (model.User, bool)
}

// RequireSession lets authenticated requests through. Anonymous browser requests are
// redirected to the login page; API requests get 401. No backend call is made.
func RequireSession(sessions SessionReader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := sessions.Current()
		if !ok {
			logger.Debug("anonymous request to protected route",
				zap.String("path", c.Request.URL.Path),
			)
			if c.Request.Method == http.MethodGet && c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEHTML {
				c.Redirect(http.StatusFound, LoginPath)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":     "UNAUTHENTICATED",
				"message":  "Please log in",
				"redirect": LoginPath,
			})
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Next()
	}
}
