package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// defaultPhoneRegion resolves national phone numbers supplied without a
// country prefix.
const defaultPhoneRegion = "FR"

// RegisterUserPayload carries the registration input. Role is honored only
// when the acting principal is an admin.
type RegisterUserPayload struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Firstname string `json:"firstname"`
	Phone     string `json:"phone"`
	GDPROptIn bool   `json:"gdpr_opt_in"`
	Role      string `json:"role"`
}

// UserRegistration implements registration, activation, and deactivation.
type UserRegistration struct {
	repo       RepositoryManager
	mailer     Mailer
	signatures ClientSignatureBuilder
	logger     Logger
	baseURL    string
	adminEmail string
}

func NewUserRegistration(cfg Config, repo RepositoryManager, mailer Mailer, signatures ClientSignatureBuilder, logger Logger) *UserRegistration {
	if logger == nil {
		logger = defLogger{}
	}

	reg := &UserRegistration{
		repo:       repo,
		mailer:     mailer,
		signatures: signatures,
		logger:     logger,
	}

	if cfg != nil {
		reg.baseURL = cfg.GetBaseURL()
		reg.adminEmail = cfg.GetAdminEmail()
	}

	return reg
}

// validatePassword enforces the password policy: at least 8 characters with
// a lowercase letter, an uppercase letter, a digit, and a special character.
func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	if !lower || !upper || !digit || !special {
		return ErrInvalidPassword
	}

	return nil
}

// normalizePhone formats an optional phone number as E.164.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("INVALID_PHONE")
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// Register creates a new identity. Self-registered users start disabled and
// receive a single-use activation key by mail; admin-created users are
// enabled immediately and may carry an explicit role. A mail delivery
// failure does not undo the registration; it is surfaced alongside the
// created user as ErrSendingFailed.
func (r *UserRegistration) Register(ctx context.Context, actor *Principal, payload RegisterUserPayload) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return nil, MissingRequiredField("email")
	}
	if strings.TrimSpace(payload.Name) == "" {
		return nil, MissingRequiredField("name")
	}
	if strings.TrimSpace(payload.Firstname) == "" {
		return nil, MissingRequiredField("firstname")
	}

	if err := validatePassword(payload.Password); err != nil {
		return nil, err
	}

	phone, err := normalizePhone(payload.Phone)
	if err != nil {
		return nil, err
	}

	byAdmin := actor.IsAdminWithScope()

	roleName := RoleUser
	if byAdmin && payload.Role != "" {
		roleName = payload.Role
	}

	user := &User{
		Email:     email,
		Name:      strings.TrimSpace(payload.Name),
		Firstname: strings.TrimSpace(payload.Firstname),
		Phone:     phone,
		GDPROptIn: payload.GDPROptIn,
		Enabled:   byAdmin,
	}

	err = r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := r.repo.Users().GetByEmailTx(ctx, tx, email); err == nil {
			return ErrEmailAlreadyExists
		} else if !repository.IsRecordNotFound(err) {
			return err
		}

		role, err := r.repo.Roles().GetByNameTx(ctx, tx, roleName)
		if err != nil {
			return err
		}
		user.RoleID = role.ID
		user.Role = role

		hash, err := HashPassword(payload.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash

		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}

		if !byAdmin {
			key := r.newVerificationKey(user, roleName)
			user.EmailVerificationKey = &key
		}

		if _, err := r.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if user.EmailVerificationKey != nil {
		if mailErr := r.sendActivationMail(ctx, user); mailErr != nil {
			return user, mailErr
		}
	}

	return user, nil
}

// newVerificationKey derives a url-safe single-use key. The nonce keeps keys
// unpredictable even for identical registration input.
func (r *UserRegistration) newVerificationKey(user *User, roleName string) string {
	raw := strings.Join([]string{
		user.Email,
		user.Name,
		user.Firstname,
		roleName,
		time.Now().Format(time.RFC3339Nano),
		uuid.NewString(),
	}, "|")

	return URLSafeKey(r.signatures.Hash(raw))
}

func (r *UserRegistration) sendActivationMail(ctx context.Context, user *User) error {
	link := fmt.Sprintf("%s/register/activate?key=%s", r.baseURL, *user.EmailVerificationKey)

	_, err := r.mailer.SendMail(ctx, Email{
		Recipient: user.Email,
		Subject:   "Activate your account",
		Body:      fmt.Sprintf("Hello %s, confirm your registration: %s", user.Firstname, link),
	})

	if err != nil {
		r.logger.Error("UserRegistration could not send activation mail to %s: %s", user.Email, err)
		return goerrors.Wrap(err, ErrSendingFailed.Category, ErrSendingFailed.Message).
			WithTextCode(ErrSendingFailed.TextCode)
	}

	return nil
}

// Activate enables the identity matching the single-use key and consumes
// the key.
func (r *UserRegistration) Activate(ctx context.Context, key string) (*User, error) {
	user, err := r.repo.Users().GetByVerificationKey(ctx, key)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidActivationKey
		}
		return nil, err
	}

	user.Enabled = true
	user.EmailVerificationKey = nil

	return r.repo.Users().Update(ctx, user)
}

// Deactivate soft-disables an identity: the row stays for referential
// integrity, but the email is anonymized, the verification key consumed,
// and the stored tokens cleared. User and admin are both notified; delivery
// failures do not undo the deactivation.
func (r *UserRegistration) Deactivate(ctx context.Context, key string) error {
	user, err := r.repo.Users().GetByVerificationKey(ctx, key)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidActivationKey
		}
		return err
	}

	originalEmail := user.Email

	err = r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user.Enabled = false
		user.Email = "disabled_" + user.ID.String()
		user.EmailVerificationKey = nil

		if _, err := r.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return err
		}

		return r.repo.Users().ClearTokensTx(ctx, tx, user.ID)
	})

	if err != nil {
		return err
	}

	r.notifyDeactivation(ctx, originalEmail)

	return nil
}

func (r *UserRegistration) notifyDeactivation(ctx context.Context, email string) {
	recipients := []string{email}
	if r.adminEmail != "" {
		recipients = append(recipients, r.adminEmail)
	}

	for _, recipient := range recipients {
		if _, err := r.mailer.SendMail(ctx, Email{
			Recipient: recipient,
			Subject:   "Account deactivated",
			Body:      fmt.Sprintf("The account %s has been deactivated.", email),
		}); err != nil {
			r.logger.Error("UserRegistration could not send deactivation mail to %s: %s", recipient, err)
		}
	}
}
