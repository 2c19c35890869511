package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/klingkit/jwt"
)

var guardNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func guarded(now time.Time) http.Handler {
	secrets := StaticSecrets{"AK1": "SK1"}
	return Guard(secrets, func() time.Time { return now })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "no claims", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Issuer))
	}))
}

func serve(t *testing.T, h http.Handler, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/general/custom-voices", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func rejectionCode(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	return body.Code
}

func TestGuardAcceptsFreshToken(t *testing.T) {
	token, err := jwt.Issue("AK1", "SK1", guardNow)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := serve(t, guarded(guardNow), "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "AK1" {
		t.Fatalf("expected issuer in body, got %q", rec.Body.String())
	}
}

func TestGuardRejectionCodes(t *testing.T) {
	fresh, _ := jwt.Issue("AK1", "SK1", guardNow)
	wrongSecret, _ := jwt.Issue("AK1", "other", guardNow)
	unknownIssuer, _ := jwt.Issue("AK9", "SK1", guardNow)

	cases := []struct {
		name   string
		at     time.Time
		header string
		want   int
	}{
		{name: "missing header", at: guardNow, header: "", want: CodeAuthEmpty},
		{name: "not bearer", at: guardNow, header: "Basic abc", want: CodeAuthInvalid},
		{name: "garbage token", at: guardNow, header: "Bearer not.a.jwt", want: CodeAuthInvalid},
		{name: "wrong secret", at: guardNow, header: "Bearer " + wrongSecret, want: CodeAuthInvalid},
		{name: "unknown issuer", at: guardNow, header: "Bearer " + unknownIssuer, want: CodeAuthInvalid},
		{name: "not yet valid", at: guardNow.Add(-6 * time.Second), header: "Bearer " + fresh, want: CodeAuthNotValidYet},
		{name: "expired", at: guardNow.Add(1801 * time.Second), header: "Bearer " + fresh, want: CodeAuthExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, guarded(tc.at), tc.header)
			if got := rejectionCode(t, rec); got != tc.want {
				t.Fatalf("expected code %d, got %d", tc.want, got)
			}
		})
	}
}

func TestGuardNilResolverRejects(t *testing.T) {
	h := Guard(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if got := rejectionCode(t, serve(t, h, "Bearer x")); got != CodeAuthFailed {
		t.Fatalf("expected code %d, got %d", CodeAuthFailed, got)
	}
}
