package jobs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	jobs "github.com/goliatone/go-jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, f *issuerFixture) *fiber.App {
	t.Helper()

	registration := jobs.NewUserRegistration(nil, f.repo, &MockMailer{}, f.signatures, testLogger{})
	history := jobs.NewStatusHistory(f.repo, testLogger{})

	controller := jobs.NewAPIController(f.issuer, registration, history,
		jobs.WithControllerLogger(testLogger{}),
	)

	app := fiber.New()
	jobs.RegisterAPIRoutes(app, controller)

	return app
}

func tokenRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/authorize/token", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.Header.Set(fiber.HeaderUserAgent, "test-agent/1.0")
	req.Header.Set(fiber.HeaderAcceptLanguage, "en-US")
	return req
}

func TestTokenEndpoint(t *testing.T) {
	t.Run("valid credentials yield a grant", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		resp, err := app.Test(tokenRequest(url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {f.user.Email},
			"client_secret": {testPassword},
		}))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var grant struct {
			AccessToken     string  `json:"access_token"`
			RememberMeToken *string `json:"remember_me_token"`
			TokenType       string  `json:"token_type"`
			ExpiresIn       int     `json:"expires_in"`
			Scope           string  `json:"scope"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&grant))

		assert.NotEmpty(t, grant.AccessToken)
		assert.Equal(t, "bearer", grant.TokenType)
		assert.Equal(t, jobs.ScopeAccess, grant.Scope)
		assert.Equal(t, jobs.DefaultTokenExpirationHours*3600, grant.ExpiresIn)
		assert.Nil(t, grant.RememberMeToken)
	})

	t.Run("remember scope returns the remember token", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		resp, err := app.Test(tokenRequest(url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {f.user.Email},
			"client_secret": {testPassword},
			"scope":         {"remember"},
		}))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var grant map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&grant))
		assert.NotEmpty(t, grant["remember_me_token"])
	})

	t.Run("wrong password is an opaque 401", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		resp, err := app.Test(tokenRequest(url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {f.user.Email},
			"client_secret": {"wrong-password"},
		}))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "invalid_client", body["error"])
	})

	t.Run("unsupported grant type is a 400", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		resp, err := app.Test(tokenRequest(url.Values{
			"grant_type":    {"authorization_code"},
			"client_id":     {f.user.Email},
			"client_secret": {testPassword},
		}))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "invalid_request", body["error"])
	})

	t.Run("missing client_id is a 400", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		resp, err := app.Test(tokenRequest(url.Values{
			"grant_type":    {"client_credentials"},
			"client_secret": {testPassword},
		}))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRememberedEndpoint(t *testing.T) {
	t.Run("exchanges a remember token for the reduced scope", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		// The token has to be bound to the same fingerprint the HTTP
		// request will produce, so mint it with the header values below.
		meta := jobs.RequestMetadata{
			UserAgent:      "test-agent/1.0",
			AcceptLanguage: "en-US",
			Platform:       "Linux",
			ForwardedFor:   "203.0.113.7",
		}

		first, err := f.issuer.Issue(context.Background(), jobs.IssueRequest{
			Identifier: f.user.Email,
			Secret:     testPassword,
			Scopes:     "remember",
			Metadata:   meta,
		})
		require.NoError(t, err)
		require.NotNil(t, first.RememberMeToken)

		payload, err := json.Marshal(map[string]string{
			"rememberMeToken": *first.RememberMeToken,
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/authorize/remembered", strings.NewReader(string(payload)))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderUserAgent, "test-agent/1.0")
		req.Header.Set(fiber.HeaderAcceptLanguage, "en-US")
		req.Header.Set("Sec-CH-UA-Platform", "Linux")
		req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.7")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var grant map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&grant))
		assert.Equal(t, "access remember", grant["scope"])
	})

	t.Run("empty body is a 400", func(t *testing.T) {
		f := newIssuerFixture(t, false)
		app := newTestApp(t, f)

		req := httptest.NewRequest(http.MethodPost, "/authorize/remembered", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLabelsEndpoint(t *testing.T) {
	f := newIssuerFixture(t, false)
	app := newTestApp(t, f)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/labels", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Len(t, body["offer_statuses"], 7)
	assert.Len(t, body["contracts"], 5)
	assert.Len(t, body["work_modes"], 3)
	assert.Len(t, body["work_times"], 2)
	assert.Len(t, body["status_buckets"], 4)
}

func TestJobEndpointsRequirePrincipal(t *testing.T) {
	f := newIssuerFixture(t, false)
	app := newTestApp(t, f)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
