// Package klingkit is a small client for the Kling generative-media API: custom element
// creation, custom voice registration, and listing, fetching and deleting those resources,
// either directly or through a proxying gateway.
//
// Every call authenticates with a fresh bearer token. In direct mode the token is an HS256
// JWT minted by package [github.com/MrEthical07/klingkit/jwt] from the caller's access and
// secret key; in gateway mode it is a static gateway token.
//
// # Architecture boundaries
//
// klingkit is the public surface: [Builder], [Client], [Config], the operation routing table
// and the request/response types. Token issuance lives in jwt; gateway-side verification
// lives in middleware; metric exporters live under metrics/export.
//
// # What this package must NOT do
//
//   - Retry, back off or pool requests beyond what net/http does by default.
//   - Cache tokens or persist any state between calls.
//   - Log secret keys or full bearer tokens.
package klingkit
