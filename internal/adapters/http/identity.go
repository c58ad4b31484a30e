package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	userKey          = "user"
	sessionUserKey   = "uid"
	sessionExpiryKey = "exp"

	sessionMaxAge = 7 * 24 * time.Hour
)

var now = time.Now

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return c.Query("token")
}

// sessionExpiry is when a session opened by a token expiring at exp ends:
// never after the token, never after the cookie.
func sessionExpiry(exp time.Time) int64 {
	limit := now().Add(sessionMaxAge)
	if exp.IsZero() || exp.After(limit) {
		exp = limit
	}
	return exp.Unix()
}

// IdentityMiddleware resolves the caller from a bearer token, a token query
// parameter or the cookie session a previous token established. A session
// ends when the token that opened it expires.
func IdentityMiddleware(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if raw := bearerToken(c); raw != "" {
			id, exp, err := v.Parse(raw)
			if err != nil {
				log.Debug().Str("module", "adapters.http").Err(err).Msg("rejected token")
				abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthorized)
				return
			}
			until := sessionExpiry(exp)
			if sess.Get(sessionUserKey) != string(id) || sess.Get(sessionExpiryKey) != until {
				sess.Set(sessionUserKey, string(id))
				sess.Set(sessionExpiryKey, until)
				if err := sess.Save(); err != nil {
					log.Warn().Str("module", "adapters.http").Err(err).Msg("session save")
				}
			}
			c.Set(userKey, &domain.User{ID: id})
			c.Next()
			return
		}

		uid, _ := sess.Get(sessionUserKey).(string)
		until, _ := sess.Get(sessionExpiryKey).(int64)
		if uid != "" && domain.UserID(uid).Validate() == nil && now().Unix() < until {
			c.Set(userKey, &domain.User{ID: domain.UserID(uid)})
			c.Next()
			return
		}
		if uid != "" {
			sess.Clear()
			if err := sess.Save(); err != nil {
				log.Warn().Str("module", "adapters.http").Err(err).Msg("session save")
			}
		}
		abortWithError(c, http.StatusUnauthorized, domain.ErrUnauthorized)
	}
}

// CurrentUser returns the identity IdentityMiddleware attached.
func CurrentUser(c *gin.Context) *domain.User {
	if u, ok := c.Get(userKey); ok {
		return u.(*domain.User)
	}
	return nil
}
