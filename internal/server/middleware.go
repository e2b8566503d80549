package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/academy/internal/auth"
	"github.com/smallbiznis/academy/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) AuthRequired() gin.HandlerFunc {
	return auth.Middleware(s.issuer)
}

// Authorize checks the caller's role against the object/action policy. Row
// ownership is left to the domain services.
func (s *Server) Authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), id.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PurchaseRateLimit throttles checkout creation per student.
func (s *Server) PurchaseRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.purchaseLimiter.Enabled() {
			c.Next()
			return
		}
		id, ok := auth.IdentityFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		res, err := s.purchaseLimiter.Allow(ctx, id.UserID)
		if err != nil {
			// Fail open; the gateway and the unique order id still bound abuse.
			logger.FromContext(ctx).Warn("purchase rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
	}
	return id, ok
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
