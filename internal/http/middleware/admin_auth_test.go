package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedOperatorToken(t *testing.T, secret string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "recepcao",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestOperatorJWTMissingSecret(t *testing.T) {
	mw := OperatorJWT("")
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings/pending", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestOperatorJWTMissingHeader(t *testing.T) {
	mw := OperatorJWT("secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings/pending", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestOperatorJWTWrongSecret(t *testing.T) {
	mw := OperatorJWT("secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings/pending", nil)
	req.Header.Set("Authorization", "Bearer "+signedOperatorToken(t, "other"))
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestOperatorJWTValidToken(t *testing.T) {
	mw := OperatorJWT("secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings/pending", nil)
	req.Header.Set("Authorization", "Bearer "+signedOperatorToken(t, "secret"))
	rec := httptest.NewRecorder()

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := OperatorClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected operator claims in context")
		}
		if claims.Subject != "recepcao" {
			t.Errorf("subject = %q", claims.Subject)
		}
	})).ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not reached with a valid token")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
