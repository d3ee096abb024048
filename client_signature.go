package jobs

import (
	"crypto/sha256"
	"encoding/base64"
	"net"
	"strings"
)

// RequestMetadata carries the request attributes the signature derives from.
// The HTTP layer fills it from headers; nothing here depends on the
// transport.
type RequestMetadata struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
	ForwardedFor   string
	RemoteIP       string
}

// SHA256SignatureBuilder derives a deterministic client fingerprint from
// stable request attributes. The raw source IP is never used directly: the
// last octet is masked so an address rotating inside one network keeps the
// same signature, while a replay from a different network does not.
type SHA256SignatureBuilder struct{}

var _ ClientSignatureBuilder = SHA256SignatureBuilder{}

func NewClientSignatureBuilder() SHA256SignatureBuilder {
	return SHA256SignatureBuilder{}
}

// BuildSignature derives the signature for the request.
func (b SHA256SignatureBuilder) BuildSignature(meta RequestMetadata) string {
	raw := strings.Join([]string{
		strings.TrimSpace(meta.UserAgent),
		strings.TrimSpace(meta.AcceptLanguage),
		strings.TrimSpace(meta.Platform),
		clientNetwork(meta),
	}, "|")

	return b.Hash(raw)
}

// Hash computes the base64 encoded SHA-256 digest of raw.
func (b SHA256SignatureBuilder) Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// clientNetwork resolves the client-most address and masks it to its
// network: /24 for IPv4, /48 for IPv6.
func clientNetwork(meta RequestMetadata) string {
	addr := meta.RemoteIP
	if meta.ForwardedFor != "" {
		hops := strings.Split(meta.ForwardedFor, ",")
		addr = strings.TrimSpace(hops[0])
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return addr
	}

	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}

	return ip.Mask(net.CIDRMask(48, 128)).String()
}

// URLSafeKey converts a base64 std encoded hash into a URL safe single-use
// key, in the shape used for email verification links.
func URLSafeKey(hash string) string {
	replacer := strings.NewReplacer("+", "-", "/", "_", "=", "")
	return replacer.Replace(hash)
}
