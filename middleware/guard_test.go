package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/store"
	"github.com/honjaopseoye/adminsession/token"
)

type fakeSessions struct {
	err   error
	state adminsession.State
}

func (f *fakeSessions) Authorization(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "tok", nil
}

func (f *fakeSessions) State() adminsession.State {
	return f.state
}

func okHandler(t *testing.T, wantID string) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Errorf("identity missing from context")
		}
		if id.ID != wantID {
			t.Errorf("identity ID = %q, want %q", id.ID, wantID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	return rec
}

func TestGuardStatusByPhase(t *testing.T) {
	admin := &adminsession.Identity{ID: "1", Name: "관리자", Role: token.RoleAdmin}
	staff := &adminsession.Identity{ID: "2", Name: "사용자", Role: "STAFF"}

	cases := []struct {
		name     string
		sessions Sessions
		roles    []token.Role
		want     int
	}{
		{name: "nil sessions", sessions: nil, want: http.StatusUnauthorized},
		{
			name:     "initializing",
			sessions: &fakeSessions{err: adminsession.ErrManagerNotReady},
			want:     http.StatusServiceUnavailable,
		},
		{
			name:     "unauthenticated",
			sessions: &fakeSessions{err: adminsession.ErrNotAuthenticated},
			want:     http.StatusUnauthorized,
		},
		{
			name:     "expired",
			sessions: &fakeSessions{err: adminsession.ErrExpiredToken},
			want:     http.StatusUnauthorized,
		},
		{
			name:     "logged out between checks",
			sessions: &fakeSessions{state: adminsession.State{Phase: adminsession.PhaseUnauthenticated}},
			want:     http.StatusUnauthorized,
		},
		{
			name:     "authenticated",
			sessions: &fakeSessions{state: adminsession.State{Phase: adminsession.PhaseAuthenticated, Authenticated: true, Identity: admin}},
			want:     http.StatusNoContent,
		},
		{
			name:     "admin role",
			sessions: &fakeSessions{state: adminsession.State{Phase: adminsession.PhaseAuthenticated, Authenticated: true, Identity: admin}},
			roles:    []token.Role{token.RoleAdmin},
			want:     http.StatusNoContent,
		},
		{
			name:     "role mismatch",
			sessions: &fakeSessions{state: adminsession.State{Phase: adminsession.PhaseAuthenticated, Authenticated: true, Identity: staff}},
			roles:    []token.Role{token.RoleAdmin},
			want:     http.StatusForbidden,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(Guard(tc.sessions, tc.roles...)(okHandler(t, "1")))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestGuardInitializingSetsRetryAfter(t *testing.T) {
	rec := serve(RequireSession(&fakeSessions{err: adminsession.ErrManagerNotReady})(okHandler(t, "")))

	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if got := rec.Body.String(); got != loadingMsg+"\n" {
		t.Fatalf("body = %q, want %q", got, loadingMsg+"\n")
	}
}

func TestRequireAdminWithManager(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	m, err := adminsession.New().
		WithStorage(store.NewMemory(clock)).
		WithClock(clock).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)

	h := RequireAdmin(m)(okHandler(t, "42"))

	if rec := serve(h); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before bootstrap: status = %d, want 503", rec.Code)
	}

	ctx := context.Background()
	m.Bootstrap(ctx)
	if rec := serve(h); rec.Code != http.StatusUnauthorized {
		t.Fatalf("after bootstrap: status = %d, want 401", rec.Code)
	}

	tm, err := token.NewManager(token.Config{SigningMethod: token.MethodHS256, PrivateKey: []byte("guard-test-secret-guard-test-secret")})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	tok, err := tm.Sign(token.Claims{UserID: 42, Role: token.RoleAdmin, ExpiresAt: now.Add(time.Minute).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err = m.LoginWithToken(ctx, tok); err != nil {
		t.Fatalf("LoginWithToken: %v", err)
	}

	if rec := serve(h); rec.Code != http.StatusNoContent {
		t.Fatalf("after login: status = %d, want 204", rec.Code)
	}

	now = now.Add(time.Minute)
	if rec := serve(h); rec.Code != http.StatusUnauthorized {
		t.Fatalf("after expiry: status = %d, want 401", rec.Code)
	}
	if m.State().Authenticated {
		t.Fatalf("expired session still authenticated")
	}
}
