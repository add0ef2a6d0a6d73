package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

type tokenKey struct{}

// WithToken attaches a caller's bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey{}).(string)
	return s
}

// BearerToken extracts "Authorization: Bearer <token>" from an
// Authorization header value. Anything else yields "".
func BearerToken(header string) string {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// TokenMiddleware copies the request's bearer token into the request
// context. It does not reject anything: which commands need a session is
// decided at dispatch.
func TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := BearerToken(c.GetHeader("Authorization")); tok != "" {
			c.Request = c.Request.WithContext(WithToken(c.Request.Context(), tok))
		}
		c.Next()
	}
}
