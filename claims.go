package jobs

import (
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope names recognized by the credential flow. ScopeAccess is the default
// grant; ScopeAdmin is added for admin identities on a fresh login;
// ScopeRemember marks grants obtained through a remember-me exchange.
const (
	ScopeAccess     = "access"
	ScopeAdmin      = "admin"
	ScopeRemember   = "remember"
	ScopeRefresh    = "refresh"
	ScopeRemembered = "remembered"
	ScopeRememberMe = "rememberme"
)

// TokenClaims is the claim set carried by every credential the service
// issues: stored tokens, bearer tokens, and remember-me tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	ClientID        string `json:"client_id,omitempty"`
	Scope           string `json:"scope,omitempty"`
	TokenType       string `json:"token_type,omitempty"`
	Role            string `json:"role,omitempty"`
	Admin           bool   `json:"admin,omitempty"`
	ClientSignature string `json:"client_signature,omitempty"`
}

// Expires returns the expiration time, or the zero time when absent.
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// HasScope reports whether the space separated scope claim contains name.
func (c *TokenClaims) HasScope(name string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == name {
			return true
		}
	}
	return false
}

// Principal is the typed caller identity resolved once from verified claims.
// Authorization checks compare these fields directly instead of matching
// runtime authority strings.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   string
	Admin  bool
	scopes map[string]struct{}
}

// NewPrincipal builds a Principal from verified token claims.
func NewPrincipal(claims *TokenClaims) *Principal {
	p := &Principal{
		Email:  claims.ClientID,
		Role:   claims.Role,
		Admin:  claims.Admin,
		scopes: map[string]struct{}{},
	}

	if id, err := uuid.Parse(claims.Subject); err == nil {
		p.UserID = id
	}

	for _, s := range strings.Fields(claims.Scope) {
		p.scopes[s] = struct{}{}
	}

	return p
}

// HasScope reports whether the principal carries the named scope.
func (p *Principal) HasScope(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.scopes[name]
	return ok
}

// Scopes returns the principal's scopes in a stable order.
func (p *Principal) Scopes() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.scopes))
	for s := range p.scopes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IsAdminWithScope reports whether the caller is an admin identity holding
// the admin scope. Remember-scoped grants never carry the admin scope, so an
// admin acting through a remembered session does not get admin reach.
func (p *Principal) IsAdminWithScope() bool {
	return p != nil && p.Admin && p.HasScope(ScopeAdmin)
}

// parseScopeSet splits a space separated scope string into a set.
func parseScopeSet(scope string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, s := range strings.Fields(scope) {
		set[strings.TrimSpace(s)] = struct{}{}
	}
	return set
}
