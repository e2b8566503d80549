package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/academy/internal/observability/context"
)

const identityKey = "auth.identity"

// Middleware authenticates the bearer token and stores the identity on both
// the gin context and the request context. Failures are pushed onto c.Errors
// so the error middleware renders them.
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			_ = c.Error(ErrUnauthorized)
			c.Abort()
			return
		}

		id, err := issuer.Parse(token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		ctx := obscontext.WithActor(c.Request.Context(), id.UserID.String(), id.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
