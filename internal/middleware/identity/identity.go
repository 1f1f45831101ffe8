// Package identity attaches the caller's session to each request
package identity

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/urna-api/internal/auth"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/response"
)

const (
	sessionKey       = "session"
	ServiceKeyHeader = "X-Service-Key"
)

// TokenVerifier turns a bearer token into a session
type TokenVerifier interface {
	Verify(token string) (session.Session, error)
}

// KeyChecker validates the elevated service credential
type KeyChecker interface {
	Check(key string) bool
}

// Authenticate resolves the bearer token, if any. Requests without one carry
// the anonymous session; a present but invalid token is rejected.
func Authenticate(verifier TokenVerifier, keys KeyChecker) gin.HandlerFunc {
	log := logger.Audit()

	return func(c *gin.Context) {
		sess := session.Anonymous()

		header := c.GetHeader("Authorization")
		if header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				response.UnauthorizedError(c, "malformed authorization header")
				return
			}

			var err error
			sess, err = verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", c.GetString("request_id"),
					"path", c.Request.URL.Path,
					"error", err,
				)
				response.UnauthorizedError(c, "invalid or expired token")
				return
			}
		}

		if key := c.GetHeader(ServiceKeyHeader); key != "" {
			if sess.IsAdmin() && keys != nil && keys.Check(key) {
				sess.Elevated = true
			} else {
				log.Warn("Service key not accepted",
					"request_id", c.GetString("request_id"),
					"user_id", sess.UserID,
					"role", sess.Role,
				)
			}
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireSession rejects anonymous requests
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).Authenticated() {
			response.UnauthorizedError(c, "authentication required")
			return
		}
		c.Next()
	}
}

// FromContext returns the request session, anonymous when none was attached
func FromContext(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Anonymous()
}

var (
	_ TokenVerifier = (*auth.Verifier)(nil)
	_ KeyChecker    = (*auth.ServiceKeyChecker)(nil)
)
