// Package jwt issues and verifies the short-lived HS256 bearer tokens the Kling API
// expects on every request.
//
// A token carries exactly three claims: iss (the access key), nbf (issue time minus
// [NotBeforeSkew]) and exp (issue time plus [TokenTTL]). The secret key only signs; it is
// never embedded in the token or sent on the wire.
//
// # Architecture boundaries
//
// [Issue] is a pure function of its inputs. [Signer] binds a validated credential pair to a
// clock for callers that mint one token per outbound request. [Verify] and [Decode] exist
// for gateways and diagnostics that need to inspect what was issued.
//
// # What this package must NOT do
//
//   - Cache, persist or reuse tokens across calls.
//   - Perform network I/O.
//   - Make the lifetime or skew configurable.
package jwt
