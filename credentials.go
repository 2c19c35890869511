package klingkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/klingkit/jwt"
)

// TokenSource yields the bearer token for one outbound request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type signedTokenSource struct {
	signer *jwt.Signer
}

// NewSignedTokenSource returns a TokenSource that signs a fresh token per call.
// now may be nil.
func NewSignedTokenSource(accessKey, secretKey string, now func() time.Time) (TokenSource, error) {
	signer, err := jwt.NewSigner(jwt.Config{AccessKey: accessKey, SecretKey: secretKey, Now: now})
	if err != nil {
		return nil, err
	}
	return &signedTokenSource{signer: signer}, nil
}

func (s *signedTokenSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.signer.Token()
}

type staticTokenSource string

// StaticToken returns a TokenSource for a pre-issued gateway token.
func StaticToken(token string) TokenSource {
	return staticTokenSource(strings.TrimSpace(token))
}

func (s staticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: gateway token is empty", ErrInvalidCredential)
	}
	return string(s), nil
}

// Mask keeps the first keep runes of s and replaces the rest with "***".
// Values no longer than keep are fully masked.
func Mask(s string, keep int) string {
	r := []rune(s)
	if keep <= 0 || len(r) <= keep {
		return "***"
	}
	return string(r[:keep]) + "***"
}
