package jobs_test

import (
	"testing"

	jobs "github.com/goliatone/go-jobs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func principalWith(scope string, role string, admin bool) *jobs.Principal {
	return jobs.NewPrincipal(&jobs.TokenClaims{
		ClientID: "user@example.com",
		Scope:    scope,
		Role:     role,
		Admin:    admin,
	})
}

func TestAuthorizationDecisionEngine_Decide(t *testing.T) {
	engine := jobs.NewAuthorizationDecisionEngine()

	member := principalWith("access", jobs.RoleUser, false)
	admin := principalWith("access admin", jobs.RoleAdmin, true)
	remembered := principalWith("access remember", jobs.RoleUser, false)
	rememberedAdmin := principalWith("access remember", jobs.RoleAdmin, true)
	noAccess := principalWith("remember", jobs.RoleUser, false)

	tests := []struct {
		name      string
		principal *jobs.Principal
		method    string
		path      string
		allow     bool
	}{
		{"preflight always passes", nil, "OPTIONS", "/jobs/123", true},
		{"token endpoint is public", nil, "POST", "/authorize/token", true},
		{"remembered endpoint is public", nil, "POST", "/authorize/remembered", true},
		{"refresh endpoint is public", nil, "POST", "/authorize/refresh", true},
		{"cleanup endpoint is public", nil, "POST", "/authorize/cleanup", true},
		{"registration is public", nil, "POST", "/register", true},
		{"activation is public", nil, "POST", "/register/activate", true},
		{"deactivation is public", nil, "POST", "/register/deactivate", true},
		{"trailing slash on public route", nil, "POST", "/register/", true},

		{"anonymous denied on jobs", nil, "GET", "/jobs", false},
		{"member allowed on jobs", member, "GET", "/jobs", true},
		{"member allowed on labels", member, "GET", "/labels", true},
		{"access scope required even when authenticated", noAccess, "GET", "/jobs", false},

		{"member denied on users", member, "GET", "/users", false},
		{"member denied on roles", member, "GET", "/roles", false},
		{"admin allowed on users", admin, "GET", "/users", true},
		{"admin allowed on roles", admin, "GET", "/roles/123", true},
		{"anonymous denied on users", nil, "GET", "/users", false},

		{"remembered session reaches ordinary routes", remembered, "GET", "/jobs", true},
		{"remembered admin denied on admin routes", rememberedAdmin, "GET", "/users", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allow, engine.Decide(tt.principal, tt.method, tt.path))
		})
	}
}

func TestPrincipal(t *testing.T) {
	t.Run("resolves identity fields from claims", func(t *testing.T) {
		id := uuid.New()
		claims := &jobs.TokenClaims{
			ClientID: "user@example.com",
			Scope:    "access admin",
			Role:     jobs.RoleAdmin,
			Admin:    true,
		}
		claims.Subject = id.String()

		p := jobs.NewPrincipal(claims)

		assert.Equal(t, id, p.UserID)
		assert.Equal(t, "user@example.com", p.Email)
		assert.True(t, p.Admin)
		assert.True(t, p.HasScope("access"))
		assert.True(t, p.IsAdminWithScope())
		assert.Equal(t, []string{"access", "admin"}, p.Scopes())
	})

	t.Run("admin flag without admin scope is not enough", func(t *testing.T) {
		p := principalWith("access remember", jobs.RoleAdmin, true)
		assert.False(t, p.IsAdminWithScope())
	})

	t.Run("nil principal has no scopes", func(t *testing.T) {
		var p *jobs.Principal
		assert.False(t, p.HasScope("access"))
		assert.False(t, p.IsAdminWithScope())
	})
}
