package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
)

const secret = "topsecret"

func protected(t *testing.T) http.Handler {
	t.Helper()
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return Auth(secret)(inner)
}

func adminToken(t *testing.T, subject, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{Subject: subject}).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuth(t *testing.T) {
	h := protected(t)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + adminToken(t, "admin", secret), http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer " + adminToken(t, "admin", "other"), http.StatusUnauthorized},
		{"wrong subject", "Bearer " + adminToken(t, "intern", secret), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	t.Run("assigned", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" {
			t.Error("no request id in context")
		}
		if got := w.Header().Get("X-Request-Id"); got != seen {
			t.Errorf("header %q does not match context %q", got, seen)
		}
	})

	t.Run("preserved from caller", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-Id", "caller-id")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		if seen != "caller-id" {
			t.Errorf("caller id not preserved: %q", seen)
		}
	})
}
