package jobs

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// publicRoutes bypass authentication entirely. Everything needed to obtain
// or shed credentials has to be reachable without a bearer token.
var publicRoutes = map[string]struct{}{
	"/authorize/token":      {},
	"/authorize/remembered": {},
	"/authorize/refresh":    {},
	"/authorize/cleanup":    {},
	"/register":             {},
	"/register/activate":    {},
	"/register/deactivate":  {},
}

// adminPrefixes are reachable only by admin identities holding the admin
// scope. Remember-scoped grants never carry it.
var adminPrefixes = []string{
	"/roles",
	"/users",
}

// AuthorizationDecisionEngine evaluates route access for a resolved
// principal. Rules run in a fixed precedence order; the first matching rule
// decides.
type AuthorizationDecisionEngine struct{}

func NewAuthorizationDecisionEngine() *AuthorizationDecisionEngine {
	return &AuthorizationDecisionEngine{}
}

// Decide reports whether the principal may reach method+path. Precedence:
// pre-flight requests always pass, then the public allow-list, then the
// admin-only prefixes, then the access scope requirement. Role alone is
// never sufficient; a token without the access scope is denied even when
// otherwise authentic.
func (e *AuthorizationDecisionEngine) Decide(p *Principal, method, path string) bool {
	if strings.EqualFold(method, fiber.MethodOptions) {
		return true
	}

	if _, ok := publicRoutes[normalizePath(path)]; ok {
		return true
	}

	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return p.IsAdminWithScope()
		}
	}

	return p != nil && p.HasScope(ScopeAccess)
}

func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// NewAuthMiddleware returns the fiber handler guarding every route. It
// resolves the bearer token into a Principal and lets the decision engine
// gate the request. The presented token must match the jti of the identity's
// current stored token; a revoked or superseded bearer is treated the same
// as no token at all.
func NewAuthMiddleware(engine *AuthorizationDecisionEngine, signer TokenSigner, users Users, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		principal := resolvePrincipal(c, signer, users, logger)

		if !engine.Decide(principal, c.Method(), c.Path()) {
			if principal == nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid_client",
				})
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access_denied",
			})
		}

		if principal != nil {
			WithPrincipal(c, principal)
		}

		return c.Next()
	}
}

func resolvePrincipal(c *fiber.Ctx, signer TokenSigner, users Users, logger Logger) *Principal {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return nil
	}

	claims, err := signer.Verify(token)
	if err != nil {
		logger.Debug("auth middleware rejected token: %s", err)
		return nil
	}

	user, err := users.GetByEmail(c.Context(), claims.ClientID)
	if err != nil || !user.Enabled || user.AuthToken == nil {
		return nil
	}

	stored, err := signer.ExtractClaims(*user.AuthToken, true)
	if err != nil || stored.ID == "" || stored.ID != claims.ID {
		logger.Debug("auth middleware stored token binding failed for %s", claims.ClientID)
		return nil
	}

	return NewPrincipal(claims)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
