package jobs

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential flow constants. The stored token is short lived and only used
// for identity continuity; the bearer token is what callers present on API
// requests; remember-me tokens stretch the bearer window by a multiplier.
const (
	DefaultTokenExpirationHours       = 24
	DefaultStoredTokenExpirationHours = 2
	DefaultRefreshFloorHours          = 2
	DefaultRememberMultiplier         = 365

	GrantTypeClientCredentials = "client_credentials"
	TokenTypeBearer            = "bearer"
)

// IssueRequest is the transition input of the credential flow state machine.
// Scopes selects the flow: "refresh" exchanges a prior bearer token,
// "remembered" exchanges a remember-me token, anything else is a fresh login
// verified against the password hash. "remember" or "rememberme" on a fresh
// login additionally mints a remember-me token.
type IssueRequest struct {
	Identifier string
	Secret     string
	Scopes     string
	Metadata   RequestMetadata
}

// TokenGrant is the successful issuance output.
type TokenGrant struct {
	AccessToken     string    `json:"access_token"`
	RememberMeToken *string   `json:"remember_me_token"`
	TokenType       string    `json:"token_type"`
	ExpiresIn       int       `json:"expires_in"`
	Scope           string    `json:"scope"`
	AbsoluteExpiry  time.Time `json:"-"`
}

// TokenIssuer implements the fresh / refresh / remembered credential flow.
// Every call runs inside a single transaction on the identity row so
// concurrent exchanges for the same identity cannot leave a stale stored
// token behind.
type TokenIssuer struct {
	repo               RepositoryManager
	signer             TokenSigner
	signatures         ClientSignatureBuilder
	logger             Logger
	tokenExpiration    int
	storedExpiration   int
	refreshFloor       int
	rememberMultiplier int
}

func NewTokenIssuer(cfg Config, repo RepositoryManager, signer TokenSigner, signatures ClientSignatureBuilder, logger Logger) *TokenIssuer {
	if logger == nil {
		logger = defLogger{}
	}

	issuer := &TokenIssuer{
		repo:               repo,
		signer:             signer,
		signatures:         signatures,
		logger:             logger,
		tokenExpiration:    DefaultTokenExpirationHours,
		storedExpiration:   DefaultStoredTokenExpirationHours,
		refreshFloor:       DefaultRefreshFloorHours,
		rememberMultiplier: DefaultRememberMultiplier,
	}

	if cfg != nil {
		if v := cfg.GetTokenExpiration(); v > 0 {
			issuer.tokenExpiration = v
		}
		if v := cfg.GetStoredTokenExpiration(); v > 0 {
			issuer.storedExpiration = v
		}
		if v := cfg.GetRefreshFloor(); v > 0 {
			issuer.refreshFloor = v
		}
		if v := cfg.GetRememberMultiplier(); v > 0 {
			issuer.rememberMultiplier = v
		}
	}

	return issuer
}

// Issue runs one credential exchange. Failures are opaque: the caller sees
// ErrInvalidClient whether the identity is unknown, disabled, or presented a
// bad secret, and ErrTokenTheftSuspected only on a client signature mismatch.
// Once the identity row is loaded, any failure clears both stored tokens.
func (s *TokenIssuer) Issue(ctx context.Context, req IssueRequest) (*TokenGrant, error) {
	scopes := parseScopeSet(req.Scopes)

	var grant *TokenGrant
	var clearID uuid.UUID

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByEmailTx(ctx, tx, req.Identifier)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidClient
			}
			return err
		}

		clearID = user.ID

		if !user.Enabled {
			return ErrInvalidClient
		}

		_, wantRefresh := scopes[ScopeRefresh]
		_, wantRemembered := scopes[ScopeRemembered]

		switch {
		case wantRefresh:
			grant, err = s.refresh(ctx, tx, user, req)
		case wantRemembered:
			grant, err = s.remembered(ctx, tx, user, req)
		default:
			_, remember := scopes[ScopeRemember]
			_, rememberMe := scopes[ScopeRememberMe]
			grant, err = s.fresh(ctx, tx, user, req, remember || rememberMe)
		}

		return err
	})

	if err != nil {
		if clearID != uuid.Nil {
			s.clearStoredTokens(ctx, clearID)
		}

		if goerrors.Is(err, ErrTokenTheftSuspected) {
			return nil, ErrTokenTheftSuspected
		}

		if !goerrors.Is(err, ErrInvalidClient) {
			s.logger.Error("TokenIssuer issuance failed for %s: %s", req.Identifier, err)
		}

		return nil, ErrInvalidClient
	}

	return grant, nil
}

// fresh verifies the password and mints a new token pair, plus a remember-me
// token when requested. Any prior stored tokens are replaced.
func (s *TokenIssuer) fresh(ctx context.Context, tx bun.IDB, user *User, req IssueRequest, remember bool) (*TokenGrant, error) {
	if err := ComparePasswordAndHash(req.Secret, user.PasswordHash); err != nil {
		return nil, ErrInvalidClient
	}

	scope := ScopeAccess
	if user.IsAdmin() {
		scope += " " + ScopeAdmin
	}

	signature := s.signatures.BuildSignature(req.Metadata)

	var rememberToken *string
	if remember {
		minted, err := s.mintRememberToken(user, signature)
		if err != nil {
			return nil, err
		}
		rememberToken = &minted
	}

	return s.mintAndStore(ctx, tx, user, scope, signature, s.tokenExpiration, rememberToken)
}

// refresh exchanges a still valid bearer token for a new one. The presented
// token must be cryptographically valid including expiry, bound to the same
// client signature, and match the jti of the current stored token. The new
// bearer keeps the remaining lifetime instead of resetting the clock: the
// remaining hours are truncated so a refresh never extends the window, with
// a floor so a token refreshed at the last minute stays usable.
func (s *TokenIssuer) refresh(ctx context.Context, tx bun.IDB, user *User, req IssueRequest) (*TokenGrant, error) {
	claims, err := s.signer.Verify(req.Secret)
	if err != nil {
		return nil, ErrInvalidClient
	}

	if claims.ClientID != user.Email {
		return nil, ErrInvalidClient
	}

	signature := s.signatures.BuildSignature(req.Metadata)
	if claims.ClientSignature != signature {
		return nil, ErrTokenTheftSuspected
	}

	if user.AuthToken == nil {
		return nil, ErrInvalidClient
	}

	stored, err := s.signer.ExtractClaims(*user.AuthToken, true)
	if err != nil || stored.ID == "" || stored.ID != claims.ID {
		return nil, ErrInvalidClient
	}

	ttlHours := int(time.Until(claims.Expires()).Hours())
	if ttlHours < s.refreshFloor {
		ttlHours = s.refreshFloor
	}

	return s.mintAndStore(ctx, tx, user, claims.Scope, signature, ttlHours, user.RememberMeToken)
}

// remembered exchanges a remember-me token for a fresh bearer pair with the
// reduced remember scope. The remember-me window is long, so claim extraction
// tolerates expiry and the stored copy is the source of truth.
func (s *TokenIssuer) remembered(ctx context.Context, tx bun.IDB, user *User, req IssueRequest) (*TokenGrant, error) {
	claims, err := s.signer.ExtractClaims(req.Secret, true)
	if err != nil {
		return nil, ErrInvalidClient
	}

	signature := s.signatures.BuildSignature(req.Metadata)
	if claims.ClientSignature != signature {
		return nil, ErrTokenTheftSuspected
	}

	if user.RememberMeToken == nil || *user.RememberMeToken != req.Secret {
		return nil, ErrInvalidClient
	}

	scope := ScopeAccess + " " + ScopeRemember

	return s.mintAndStore(ctx, tx, user, scope, signature, s.tokenExpiration, user.RememberMeToken)
}

// mintAndStore mints the stored/bearer token pair sharing one jti, persists
// the stored side, and assembles the grant. The stored token's expiry is the
// grant's absolute horizon for identity continuity.
func (s *TokenIssuer) mintAndStore(ctx context.Context, tx bun.IDB, user *User, scope, signature string, bearerTTLHours int, rememberToken *string) (*TokenGrant, error) {
	jti := newTokenID()

	storedToken, err := s.signer.Sign(s.newClaims(user, scope, signature, jti), user.ID.String(), s.storedExpiration)
	if err != nil {
		return nil, err
	}

	bearerToken, err := s.signer.Sign(s.newClaims(user, scope, signature, jti), user.ID.String(), bearerTTLHours)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Users().StoreTokensTx(ctx, tx, user.ID, &storedToken, rememberToken); err != nil {
		return nil, err
	}

	absoluteExpiry, err := s.signer.Expiry(storedToken)
	if err != nil {
		return nil, err
	}

	return &TokenGrant{
		AccessToken:     bearerToken,
		RememberMeToken: rememberToken,
		TokenType:       TokenTypeBearer,
		ExpiresIn:       bearerTTLHours * 3600,
		Scope:           scope,
		AbsoluteExpiry:  absoluteExpiry,
	}, nil
}

func (s *TokenIssuer) mintRememberToken(user *User, signature string) (string, error) {
	claims := s.newClaims(user, ScopeRememberMe, signature, newTokenID())
	return s.signer.Sign(claims, user.ID.String(), s.tokenExpiration*s.rememberMultiplier)
}

func (s *TokenIssuer) newClaims(user *User, scope, signature, jti string) *TokenClaims {
	role := ""
	if user.Role != nil {
		role = user.Role.Name
	}

	claims := &TokenClaims{
		ClientID:        user.Email,
		Scope:           scope,
		TokenType:       GrantTypeClientCredentials,
		Role:            role,
		Admin:           user.IsAdmin(),
		ClientSignature: signature,
	}
	claims.RegisteredClaims.ID = jti

	return claims
}

// IssueRefresh re-expresses a bearer token exchange as an issuance call with
// the refresh scope. The identifier comes from the token's own client claim;
// the refresh path still fully verifies the token before trusting it.
func (s *TokenIssuer) IssueRefresh(ctx context.Context, token string, meta RequestMetadata) (*TokenGrant, error) {
	claims, err := s.signer.ExtractClaims(token, true)
	if err != nil {
		return nil, ErrInvalidClient
	}

	return s.Issue(ctx, IssueRequest{
		Identifier: claims.ClientID,
		Secret:     token,
		Scopes:     ScopeAccess + " " + ScopeRefresh,
		Metadata:   meta,
	})
}

// IssueRemembered re-expresses a remember-me exchange as an issuance call
// with the remembered scope.
func (s *TokenIssuer) IssueRemembered(ctx context.Context, token string, meta RequestMetadata) (*TokenGrant, error) {
	claims, err := s.signer.ExtractClaims(token, true)
	if err != nil {
		return nil, ErrInvalidClient
	}

	return s.Issue(ctx, IssueRequest{
		Identifier: claims.ClientID,
		Secret:     token,
		Scopes:     ScopeAccess + " " + ScopeRemembered,
		Metadata:   meta,
	})
}

// Revoke clears both stored tokens after verifying the password. This is the
// explicit logout-everywhere path.
func (s *TokenIssuer) Revoke(ctx context.Context, identifier, secret string) error {
	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.repo.Users().GetByEmailTx(ctx, tx, identifier)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidClient
			}
			return err
		}

		if err := ComparePasswordAndHash(secret, user.PasswordHash); err != nil {
			return ErrInvalidClient
		}

		return s.repo.Users().ClearTokensTx(ctx, tx, user.ID)
	})
}

// clearStoredTokens drops both stored tokens in a fresh transaction. The
// issuance transaction rolls back on failure, so the clear has to happen
// outside of it. Best effort: a failure here is logged, not surfaced.
func (s *TokenIssuer) clearStoredTokens(ctx context.Context, id uuid.UUID) {
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Users().ClearTokensTx(ctx, tx, id)
	})

	if err != nil {
		s.logger.Error("TokenIssuer could not clear stored tokens for %s: %s", id, err)
	}
}
