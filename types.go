package jobs

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds service options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() int
	GetStoredTokenExpiration() int
	GetRefreshFloor() int
	GetRememberMultiplier() int
	GetBaseURL() string
	GetAdminEmail() string
	GetHTTPAddr() string
	GetDSN() string
	GetCORSAllowedOrigins() string
}

// TokenSigner signs and verifies the claim sets carried by every credential.
// Tokens are opaque strings to every other component.
type TokenSigner interface {
	Sign(claims *TokenClaims, subject string, ttlHours int) (string, error)
	Verify(token string) (*TokenClaims, error)
	ExtractClaims(token string, tolerateExpiry bool) (*TokenClaims, error)
	Expiry(token string) (time.Time, error)
}

// ClientSignatureBuilder derives a stable fingerprint from request metadata.
// Two calls with identical input attributes produce identical output.
type ClientSignatureBuilder interface {
	BuildSignature(meta RequestMetadata) string
	Hash(raw string) string
}

// Email is the message handed to the Mailer collaborator.
type Email struct {
	Recipient string
	Subject   string
	Body      string
}

// Mailer is an external collaborator; delivery mechanics are out of scope.
type Mailer interface {
	SendMail(ctx context.Context, msg Email) (string, error)
}

// NewStdLogger returns a Logger writing prefixed lines to standard output.
func NewStdLogger(prefix string) Logger {
	return stdLogger{prefix: prefix}
}

type stdLogger struct {
	prefix string
}

func (l stdLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] "+l.prefix+" "+newline(format), args...)
}

func (l stdLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] "+l.prefix+" "+newline(format), args...)
}

func (l stdLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] "+l.prefix+" "+newline(format), args...)
}

func (l stdLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] "+l.prefix+" "+newline(format), args...)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] JOBS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] JOBS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] JOBS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] JOBS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
