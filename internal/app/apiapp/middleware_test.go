package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
	"github.com/Wewst/coffe-pass/internal/domain/model"
	redrepo "github.com/Wewst/coffe-pass/internal/repo/redis"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
)

type staticResolver struct{}

func (staticResolver) ResolveOrCreate(_ context.Context, tgUser authsvc.TelegramUser) (model.User, error) {
	return model.User{
		ID:         1,
		TelegramID: tgUser.ID,
		FirstName:  tgUser.FirstName,
		Role:       enums.RoleUser,
	}, nil
}

func newTestAuthService(t *testing.T) *authsvc.Service {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	sessions := redrepo.NewSessionRepo(redrepo.NewClient(mr.Addr(), "", 0))
	return authsvc.NewService(
		authsvc.NewInitDataVerifier(""),
		authsvc.NewJWTManager("test-secret", time.Hour),
		sessions,
		staticResolver{},
		authsvc.MinRefreshTTL,
	)
}

func protectedOK() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
			http.Error(w, "identity missing", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddlewareAcceptsIssuedToken(t *testing.T) {
	service := newTestAuthService(t)

	res, err := service.LoginTelegram(context.Background(), `user={"id":42,"first_name":"Ada"}`)
	if err != nil {
		t.Fatalf("LoginTelegram: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/user/state", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rr := httptest.NewRecorder()

	AuthMiddleware(service, zap.NewNop())(protectedOK()).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	service := newTestAuthService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/state", nil)
	rr := httptest.NewRecorder()

	AuthMiddleware(service, zap.NewNop())(protectedOK()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Code != "UNAUTHORIZED" {
		t.Fatalf("error code = %q, want UNAUTHORIZED", payload.Code)
	}
}

func TestAuthMiddlewareRejectsGarbageToken(t *testing.T) {
	service := newTestAuthService(t)

	req := httptest.NewRequest(http.MethodGet, "/api/user/state", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()

	AuthMiddleware(service, zap.NewNop())(protectedOK()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsLoggedOutToken(t *testing.T) {
	service := newTestAuthService(t)

	res, err := service.LoginTelegram(context.Background(), `user={"id":42,"first_name":"Ada"}`)
	if err != nil {
		t.Fatalf("LoginTelegram: %v", err)
	}
	claims, err := service.ValidateAccessToken(context.Background(), res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if err := service.Logout(context.Background(), claims.SID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/user/state", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rr := httptest.NewRecorder()

	AuthMiddleware(service, zap.NewNop())(protectedOK()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := extractBearerToken(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
