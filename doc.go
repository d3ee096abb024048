// Package jobs implements a job application tracker with an OAuth2-style
// client-credentials token flow.
//
// The package is organized around a small set of collaborating services:
//
//   - TokenSigner signs and verifies the JWT claim sets used by every
//     credential in the system.
//   - ClientSignatureBuilder derives a deterministic fingerprint from request
//     metadata; the fingerprint is embedded in issued tokens and compared on
//     refresh and remember-me exchanges to detect token replay from a
//     different client context.
//   - TokenIssuer implements the credential flow state machine
//     (fresh login, refresh, remember-me).
//   - AuthorizationDecisionEngine gates route access from a typed Principal.
//   - StatusHistory validates job mutations, scopes them to their owner
//     through row-security criteria, and appends immutable status events.
//
// Persistence is bun-backed; repositories embed the generic
// go-repository-bun Repository and expose Tx variants that accept bun.IDB so
// services can compose them inside a single transaction.
package jobs
