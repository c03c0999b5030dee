package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	authsvc "github.com/itsmeHabibs/poundrr-backend/internal/services/auth"
)

func authTestHandler(t *testing.T, wantUserID int64) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing from context")
		}
		if identity.UserID != wantUserID {
			t.Fatalf("unexpected user id: got %d want %d", identity.UserID, wantUserID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Minute)
	token, _, err := manager.GenerateAccessToken(7, "sid-1", "USER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/deck", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	AuthMiddleware(manager, zap.NewNop())(authTestHandler(t, 7)).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d body: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Minute)
	token, _, err := manager.GenerateAccessToken(9, "sid-2", "USER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/1_9/subscribe?access_token="+token, nil)
	rr := httptest.NewRecorder()

	AuthMiddleware(manager, zap.NewNop())(authTestHandler(t, 9)).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d body: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/v1/deck", nil)
	rr := httptest.NewRecorder()

	AuthMiddleware(manager, zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestAuthMiddlewareRejectsForgedToken(t *testing.T) {
	manager := authsvc.NewJWTManager("test-secret", time.Minute)
	forger := authsvc.NewJWTManager("other-secret", time.Minute)
	token, _, err := forger.GenerateAccessToken(7, "sid-1", "USER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/deck", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	AuthMiddleware(manager, zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run with a forged token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}
