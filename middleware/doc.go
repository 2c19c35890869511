// Package middleware verifies Kling-style signed bearer tokens on inbound HTTP requests,
// for gateways and test servers that sit in front of the API.
//
// # Guards
//
//   - [Guard]: resolves the token issuer's secret and verifies signature and window.
//   - [RequireSignedToken]: Guard over a fixed access-key to secret-key map.
//
// Rejections are written as the API's JSON error envelope with HTTP 401.
//
// # What this package must NOT do
//
//   - Issue tokens (see package jwt).
//   - Cache verification results.
package middleware
