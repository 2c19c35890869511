package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTTL is the fixed lifetime of an issued token.
	TokenTTL = 1800 * time.Second
	// NotBeforeSkew backdates nbf to tolerate clock drift between issuer and verifier.
	NotBeforeSkew = 5 * time.Second

	// Algorithm is the only signing algorithm issued or accepted.
	Algorithm = "HS256"
	// TokenType is the typ header marker.
	TokenType = "JWT"
)

var (
	// ErrInvalidCredential is returned when an access or secret key is unusable for signing.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrTokenMalformed is returned by [Verify] and [Decode] for structurally broken tokens.
	ErrTokenMalformed = jwt.ErrTokenMalformed
	// ErrTokenSignatureInvalid is returned by [Verify] when the secret does not match.
	ErrTokenSignatureInvalid = jwt.ErrTokenSignatureInvalid
	// ErrTokenExpired is returned by [Verify] after exp.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrTokenNotValidYet is returned by [Verify] before nbf.
	ErrTokenNotValidYet = jwt.ErrTokenNotValidYet
	// ErrTokenClaimMissing is returned by [Verify] when iss, nbf or exp is absent.
	ErrTokenClaimMissing = jwt.ErrTokenRequiredClaimMissing
)

// Claims is the claim set embedded in every issued token.
type Claims struct {
	jwt.RegisteredClaims
}

// Issue mints a signed token for accessKey, valid from now-NotBeforeSkew through now+TokenTTL.
//
// Issue fails with [ErrInvalidCredential] if either key is empty or whitespace, is not valid
// UTF-8, or if signing fails. It has no side effects.
func Issue(accessKey, secretKey string, now time.Time) (string, error) {
	if err := validateCredential(accessKey, secretKey); err != nil {
		return "", err
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    accessKey,
			NotBefore: jwt.NewNumericDate(now.Add(-NotBeforeSkew)),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["typ"] = TokenType

	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrInvalidCredential, err)
	}
	return signed, nil
}

// Verify checks the signature of tokenStr against secretKey and that at lies inside the
// token's validity window. Both window ends are inclusive at second granularity.
func Verify(tokenStr, secretKey string, at time.Time) (*Claims, error) {
	if secretKey == "" {
		return nil, ErrInvalidCredential
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != Algorithm {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if err := validateWindow(claims, at); err != nil {
		return nil, err
	}
	return claims, nil
}

// Decode returns the header and claims of tokenStr without checking the signature or the
// validity window. Use it only for display.
func Decode(tokenStr string) (map[string]interface{}, *Claims, error) {
	claims := &Claims{}
	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims)
	if err != nil {
		return nil, nil, err
	}
	return token.Header, claims, nil
}

func validateCredential(accessKey, secretKey string) error {
	if strings.TrimSpace(accessKey) == "" {
		return fmt.Errorf("%w: access key is empty", ErrInvalidCredential)
	}
	if strings.TrimSpace(secretKey) == "" {
		return fmt.Errorf("%w: secret key is empty", ErrInvalidCredential)
	}
	if !utf8.ValidString(accessKey) {
		return fmt.Errorf("%w: access key is not valid UTF-8", ErrInvalidCredential)
	}
	if !utf8.ValidString(secretKey) {
		return fmt.Errorf("%w: secret key is not valid UTF-8", ErrInvalidCredential)
	}
	return nil
}

func validateWindow(claims *Claims, at time.Time) error {
	if claims.Issuer == "" {
		return fmt.Errorf("%w: iss", ErrTokenClaimMissing)
	}
	if claims.NotBefore == nil {
		return fmt.Errorf("%w: nbf", ErrTokenClaimMissing)
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: exp", ErrTokenClaimMissing)
	}

	sec := at.Unix()
	if sec < claims.NotBefore.Unix() {
		return ErrTokenNotValidYet
	}
	if sec > claims.ExpiresAt.Unix() {
		return ErrTokenExpired
	}
	return nil
}
