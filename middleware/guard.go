package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/token"
)

// loadingMsg is the body of responses sent before the session is restored.
const loadingMsg = "로딩 중..."

// Sessions is the view of the session manager the guards need.
// [*adminsession.Manager] implements it.
type Sessions interface {
	Authorization(ctx context.Context) (string, error)
	State() adminsession.State
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by a guard.
func IdentityFromContext(ctx context.Context) (adminsession.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(adminsession.Identity)
	return id, ok
}

// Guard admits requests while sessions holds an unexpired session whose role
// is one of roles.  An empty roles admits every role.
func Guard(sessions Sessions, roles ...token.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			_, err := sessions.Authorization(r.Context())
			switch {
			case errors.Is(err, adminsession.ErrManagerNotReady):
				w.Header().Set("Retry-After", "1")
				http.Error(w, loadingMsg, http.StatusServiceUnavailable)
				return
			case err != nil:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			st := sessions.State()
			if !st.Authenticated || st.Identity == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, st.Identity.Role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, *st.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession admits any authenticated session.
func RequireSession(sessions Sessions) func(http.Handler) http.Handler {
	return Guard(sessions)
}

// RequireAdmin admits only sessions with the ADMIN role.
func RequireAdmin(sessions Sessions) func(http.Handler) http.Handler {
	return Guard(sessions, token.RoleAdmin)
}
