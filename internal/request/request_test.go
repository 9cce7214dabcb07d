package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.1:1", "1.2.3.4"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "10.0.0.1:1", "1.2.3.4"},
		{"blank forwarded falls through", map[string]string{"X-Forwarded-For": " ,5.6.7.8", "X-Real-IP": "9.9.9.9"}, "10.0.0.1:1", "9.9.9.9"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "10.0.0.1:1", "9.9.9.9"},
		{"remote addr port stripped", nil, "10.0.0.1:12345", "10.0.0.1"},
		{"ipv6 remote", nil, "[::1]:8080", "::1"},
		{"remote without port", nil, "10.0.0.2", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			r.RemoteAddr = tt.remote
			if got := ClientIP(r); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUser(t *testing.T) {
	t.Parallel()

	u := &models.User{ID: uuid.New(), Email: "dev@devboard.dev"}

	tests := []struct {
		name string
		ctx  context.Context
		want *models.User
	}{
		{"present", WithUser(context.Background(), u), u},
		{"missing", context.Background(), nil},
		{"wrong type", context.WithValue(context.Background(), UserContextKey(), "not a user"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := User(tt.ctx); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			r := httptest.NewRequest("GET", "/", nil).WithContext(tt.ctx)
			if got := UserFromContext(r); got != tt.want {
				t.Errorf("Expected %v from request, got %v", tt.want, got)
			}
		})
	}
}

func TestRateKey(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("3f2b8c1e-0000-4000-8000-000000000001")
	authed := httptest.NewRequest("GET", "/", nil)
	authed = authed.WithContext(WithUser(authed.Context(), &models.User{ID: id}))
	if got := RateKey(authed); got != "user:"+id.String() {
		t.Errorf("Expected per-user key, got %q", got)
	}

	anon := httptest.NewRequest("GET", "/", nil)
	anon.RemoteAddr = "192.0.2.7:5555"
	if got := RateKey(anon); got != "ip:192.0.2.7" {
		t.Errorf("Expected ip key, got %q", got)
	}
}
