package jwt

import (
	"time"
)

// Config holds the credential pair a [Signer] mints tokens for.
//
// Now defaults to time.Now when nil.
type Config struct {
	AccessKey string
	SecretKey string
	Now       func() time.Time
}

// Signer mints a fresh token per call from a validated credential pair.
//
// Signer is immutable after construction and safe for concurrent use.
type Signer struct {
	config Config
}

// NewSigner validates cfg and returns a Signer. It fails with [ErrInvalidCredential] under the
// same rules as [Issue].
func NewSigner(cfg Config) (*Signer, error) {
	if err := validateCredential(cfg.AccessKey, cfg.SecretKey); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Signer{config: cfg}, nil
}

// AccessKey returns the issuer the signer writes into iss.
func (s *Signer) AccessKey() string {
	return s.config.AccessKey
}

// Token issues a token at the signer's current clock reading.
func (s *Signer) Token() (string, error) {
	return Issue(s.config.AccessKey, s.config.SecretKey, s.config.Now())
}
