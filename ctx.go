package jobs

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const principalLocalsKey = "jobs:principal"

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal stores the resolved principal in the request locals.
func WithPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalLocalsKey, p)
}

// PrincipalFromFiber retrieves the principal stored by the auth middleware.
func PrincipalFromFiber(c *fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(principalLocalsKey).(*Principal)
	return p, ok && p != nil
}

// WithPrincipalContext sets the Principal in the given context
func WithPrincipalContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(*Principal)
	return p, ok && p != nil
}
