package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"cinehub/internal/apperr"
	"cinehub/internal/httpx"
)

const CtxIdentityKey = "auth_identity"

func AuthMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
			httpx.Error(c, apperr.New(apperr.Unauthenticated, "you are not logged in"))
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		if raw == "" {
			httpx.Error(c, apperr.New(apperr.Unauthenticated, "you are not logged in"))
			return
		}

		id, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

// MustGetIdentity returns the caller set by AuthMiddleware. It panics on
// routes that are not behind the middleware.
func MustGetIdentity(c *gin.Context) *Identity {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		panic("auth: no identity in context")
	}
	return v.(*Identity)
}
