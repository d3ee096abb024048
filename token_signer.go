package jobs

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// newTokenID mints the jti claim. Stored and bearer tokens from the same
// issuance share one ID so refresh can check identity continuity.
func newTokenID() string {
	return uuid.NewString()
}

// HMACTokenSigner signs claim sets with HS256. It is the only component that
// parses tokens; everything else treats them as opaque strings.
type HMACTokenSigner struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

var _ TokenSigner = (*HMACTokenSigner)(nil)

// NewTokenSigner creates a TokenSigner backed by an HMAC signing key.
func NewTokenSigner(signingKey []byte, issuer string, logger Logger) *HMACTokenSigner {
	if logger == nil {
		logger = defLogger{}
	}
	return &HMACTokenSigner{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}
}

// Sign stamps subject, issuer, and a ttlHours expiration window onto claims
// and returns the signed token.
func (ts *HMACTokenSigner) Sign(claims *TokenClaims, subject string, ttlHours int) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	now := time.Now()
	claims.RegisteredClaims.Issuer = ts.issuer
	claims.RegisteredClaims.Subject = subject
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour))

	if claims.RegisteredClaims.ID == "" {
		claims.RegisteredClaims.ID = newTokenID()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify parses and fully validates a token string, including its expiry.
func (ts *HMACTokenSigner) Verify(tokenString string) (*TokenClaims, error) {
	token, err := ts.parse(tokenString)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenSigner verify could not decode claims")
	return nil, ErrTokenMalformed
}

// ExtractClaims returns the claims of a cryptographically valid token. With
// tolerateExpiry set, an expired token still yields its claims; any other
// validation failure is rejected.
func (ts *HMACTokenSigner) ExtractClaims(tokenString string, tolerateExpiry bool) (*TokenClaims, error) {
	token, err := ts.parse(tokenString)
	if err != nil {
		if tolerateExpiry && goerrors.Is(err, jwt.ErrTokenExpired) {
			if claims, ok := token.Claims.(*TokenClaims); ok && claims != nil {
				return claims, nil
			}
		}
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims == nil {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Expiry returns the expiration timestamp of the token, tolerating an
// already elapsed window.
func (ts *HMACTokenSigner) Expiry(tokenString string) (time.Time, error) {
	claims, err := ts.ExtractClaims(tokenString, true)
	if err != nil {
		return time.Time{}, err
	}
	return claims.Expires(), nil
}

func (ts *HMACTokenSigner) parse(tokenString string) (*jwt.Token, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	return jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenSigner encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
}
