package jobs

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// APIController exposes the credential flow, registration, and tracked
// application endpoints over fiber.
type APIController struct {
	Debug        bool
	Logger       Logger
	Issuer       *TokenIssuer
	Registration *UserRegistration
	History      *StatusHistory
}

type APIControllerOption func(*APIController) *APIController

func WithControllerLogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Debug = debug
		return c
	}
}

func NewAPIController(issuer *TokenIssuer, registration *UserRegistration, history *StatusHistory, opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger:       defLogger{},
		Issuer:       issuer,
		Registration: registration,
		History:      history,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Issuer == nil {
		panic("Missing TokenIssuer in api controller...")
	}

	if c.Registration == nil {
		panic("Missing UserRegistration in api controller...")
	}

	if c.History == nil {
		panic("Missing StatusHistory in api controller...")
	}

	return c
}

// metadataFromCtx captures the request attributes the signature builder
// fingerprints.
func metadataFromCtx(c *fiber.Ctx) RequestMetadata {
	return RequestMetadata{
		UserAgent:      c.Get(fiber.HeaderUserAgent),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
		Platform:       c.Get("Sec-CH-UA-Platform"),
		ForwardedFor:   c.Get(fiber.HeaderXForwardedFor),
		RemoteIP:       c.IP(),
	}
}

// TokenRequest is the form-encoded token endpoint payload.
type TokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	Scope        string `form:"scope" json:"scope"`
}

// Validate will run validation rules
func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.GrantType,
			validation.Required,
			validation.In(GrantTypeClientCredentials),
		),
		validation.Field(
			&r.ClientID,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.ClientSecret,
			validation.Required,
		),
	)
}

// TokenPost handles POST /authorize/token.
func (a *APIController) TokenPost(c *fiber.Ctx) error {
	payload := new(TokenRequest)

	if err := c.BodyParser(payload); err != nil {
		return invalidRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return invalidRequest(c, err.Error())
	}

	if a.Debug {
		fmt.Println("======= TOKEN REQUEST ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	grant, err := a.Issuer.Issue(c.Context(), IssueRequest{
		Identifier: payload.ClientID,
		Secret:     payload.ClientSecret,
		Scopes:     payload.Scope,
		Metadata:   metadataFromCtx(c),
	})
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(grant)
}

// RememberedRequest is the remember-me exchange payload.
type RememberedRequest struct {
	RememberMeToken string `json:"rememberMeToken"`
}

// Validate will run validation rules
func (r RememberedRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RememberMeToken, validation.Required),
	)
}

// RememberedPost handles POST /authorize/remembered.
func (a *APIController) RememberedPost(c *fiber.Ctx) error {
	payload := new(RememberedRequest)

	if err := c.BodyParser(payload); err != nil {
		return invalidRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return invalidRequest(c, err.Error())
	}

	grant, err := a.Issuer.IssueRemembered(c.Context(), payload.RememberMeToken, metadataFromCtx(c))
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(grant)
}

// RefreshPost handles POST /authorize/refresh. The prior bearer token rides
// in the Authorization header.
func (a *APIController) RefreshPost(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return invalidRequest(c, "missing bearer token")
	}

	grant, err := a.Issuer.IssueRefresh(c.Context(), token, metadataFromCtx(c))
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(grant)
}

// CleanupPost handles POST /authorize/cleanup: an explicit revoke of both
// stored tokens, gated on the password.
func (a *APIController) CleanupPost(c *fiber.Ctx) error {
	payload := new(TokenRequest)

	if err := c.BodyParser(payload); err != nil {
		return invalidRequest(c, "could not parse request body")
	}

	if payload.ClientID == "" || payload.ClientSecret == "" {
		return invalidRequest(c, "client_id and client_secret are required")
	}

	if err := a.Issuer.Revoke(c.Context(), payload.ClientID, payload.ClientSecret); err != nil {
		return a.renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterPayload is the registration endpoint payload.
type RegisterPayload struct {
	RegisterUserPayload
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RegisterPost handles POST /register.
func (a *APIController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		return invalidRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return invalidRequest(c, err.Error())
	}

	actor, _ := PrincipalFromFiber(c)

	user, err := a.Registration.Register(c.Context(), actor, payload.RegisterUserPayload)
	if err != nil {
		// Registration survived; only the activation mail failed.
		if goerrors.Is(err, ErrSendingFailed) || textCode(err) == ErrSendingFailed.TextCode {
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"user":    user,
				"warning": "activation email could not be sent",
			})
		}
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// ActivationRequest carries the single-use key, from body or query string.
type ActivationRequest struct {
	Key string `form:"key" json:"key" query:"key"`
}

// Validate will run validation rules
func (r ActivationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
	)
}

func (a *APIController) activationKey(c *fiber.Ctx) (string, error) {
	payload := new(ActivationRequest)

	if len(c.Body()) > 0 {
		if err := c.BodyParser(payload); err != nil {
			return "", invalidRequest(c, "could not parse request body")
		}
	}

	if payload.Key == "" {
		payload.Key = c.Query("key")
	}

	if err := payload.Validate(); err != nil {
		return "", invalidRequest(c, err.Error())
	}

	return payload.Key, nil
}

// ActivatePost handles POST /register/activate.
func (a *APIController) ActivatePost(c *fiber.Ctx) error {
	key, err := a.activationKey(c)
	if err != nil {
		return err
	}

	user, err := a.Registration.Activate(c.Context(), key)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(user)
}

// DeactivatePost handles POST /register/deactivate.
func (a *APIController) DeactivatePost(c *fiber.Ctx) error {
	key, err := a.activationKey(c)
	if err != nil {
		return err
	}

	if err := a.Registration.Deactivate(c.Context(), key); err != nil {
		return a.renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *APIController) principal(c *fiber.Ctx) (*Principal, error) {
	p, ok := PrincipalFromFiber(c)
	if !ok {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid_client",
		})
	}
	return p, nil
}

// JobGet handles GET /jobs/:id.
func (a *APIController) JobGet(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return a.renderError(c, ErrNotFoundOrForbidden)
	}

	job, err := a.History.GetJob(c.Context(), p, id)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(job)
}

// JobsList handles GET /jobs with optional query predicates.
func (a *APIController) JobsList(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	filter := JobSearchFilter{Sort: c.Query("sort")}

	page, err := a.History.SearchJobs(c.Context(), p, filter, c.QueryInt("page", 0), c.QueryInt("size", 20))
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(page)
}

// JobCreate handles POST /jobs.
func (a *APIController) JobCreate(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	job := new(Job)
	if err := c.BodyParser(job); err != nil {
		return invalidRequest(c, "could not parse request body")
	}

	if a.Debug {
		fmt.Println("======= JOB CREATE ======")
		fmt.Println(print.MaybePrettyJSON(job))
		fmt.Println("=========================")
	}

	created, err := a.History.RegisterJob(c.Context(), p, job)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// JobUpdate handles PUT /jobs/:id.
func (a *APIController) JobUpdate(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return a.renderError(c, ErrNotFoundOrForbidden)
	}

	job := new(Job)
	if err := c.BodyParser(job); err != nil {
		return invalidRequest(c, "could not parse request body")
	}

	updated, err := a.History.UpdateJob(c.Context(), p, id, job)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(updated)
}

// JobDelete handles DELETE /jobs/:id.
func (a *APIController) JobDelete(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return a.renderError(c, ErrNotFoundOrForbidden)
	}

	if err := a.History.DeleteJob(c.Context(), p, id); err != nil {
		return a.renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// JobsSearch handles POST /jobs/search?page&size with the filter in the body.
func (a *APIController) JobsSearch(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	filter := JobSearchFilter{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&filter); err != nil {
			return invalidRequest(c, "could not parse request body")
		}
	}

	page, err := a.History.SearchJobs(c.Context(), p, filter, c.QueryInt("page", 0), c.QueryInt("size", 20))
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(page)
}

// StatusCountGet handles GET /jobs/statuscount.
func (a *APIController) StatusCountGet(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	counts, err := a.History.BucketCounts(c.Context(), p)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(counts)
}

// CountByStatusGet handles GET /jobs/countbystatus?status=.
func (a *APIController) CountByStatusGet(c *fiber.Ctx) error {
	p, err := a.principal(c)
	if p == nil {
		return err
	}

	bucket, ok := ParseDashboardBucket(c.Query("status"))
	if !ok {
		return invalidRequest(c, "unknown status bucket")
	}

	count, err := a.History.CountBucket(c.Context(), p, bucket)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"status": bucket,
		"count":  count,
	})
}

// LabelsGet handles GET /labels: the closed enum sets for UI consumption.
func (a *APIController) LabelsGet(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"contracts":      Contracts(),
		"work_modes":     WorkModes(),
		"work_times":     WorkTimes(),
		"offer_statuses": OfferStatuses(),
		"status_buckets": DashboardBuckets(),
	})
}

func invalidRequest(c *fiber.Ctx, description string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":             "invalid_request",
		"error_description": description,
	})
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

// renderError maps service failures to the wire. Auth failures stay opaque,
// validation failures name exactly one field, and not-found never reveals
// whether the row exists.
func (a *APIController) renderError(c *fiber.Ctx, err error) error {
	if field := MissingFieldName(err); field != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing_field",
			"field": field,
		})
	}

	if field := InvalidFieldName(err); field != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_field_value",
			"field": field,
		})
	}

	switch textCode(err) {
	case ErrInvalidClient.TextCode, ErrTokenTheftSuspected.TextCode,
		ErrTokenExpired.TextCode, ErrTokenMalformed.TextCode:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":             "invalid_client",
			"error_description": "client authentication failed",
		})
	case ErrNotFoundOrForbidden.TextCode:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found",
		})
	case ErrEmailAlreadyExists.TextCode:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "email_exists",
		})
	case ErrInvalidPassword.TextCode:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":             "invalid_password",
			"error_description": ErrInvalidPassword.Message,
		})
	case ErrInvalidActivationKey.TextCode:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_activation_key",
		})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":             "invalid_request",
			"error_description": richErr.Message,
		})
	}

	a.Logger.Error("api controller unexpected error: %s", err)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal_error",
	})
}
