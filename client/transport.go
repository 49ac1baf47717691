package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/honjaopseoye/adminsession"
)

// Authorizer supplies bearer tokens and ends rejected sessions.
// [*adminsession.Manager] implements it.
type Authorizer interface {
	Authorization(ctx context.Context) (tok string, err error)

	// InvalidateToken ends the session only while it still holds tok.
	InvalidateToken(ctx context.Context, tok, reason string) (ended bool, err error)
}

// Transport is an [http.RoundTripper] that authorizes requests with the
// current session.
type Transport struct {
	// Base performs the requests.  If nil, [http.DefaultTransport] is used.
	Base http.RoundTripper

	// Sessions must not be nil.
	Sessions Authorizer

	// Logger is used for invalidation failures.  If nil, nothing is logged.
	Logger *slog.Logger
}

// type check
var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip implements the [http.RoundTripper] interface for *Transport.
//
// Requests are not sent while the session is still being restored, and a
// session whose token has expired is invalidated without sending.  Requests
// without a session go out without credentials.  A 401 ends the session only
// if it rejected the token this request carried.
func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	ctx := req.Context()
	login := isLoginEndpoint(req.URL.Path)

	var sent string
	if !login {
		sent, err = t.Sessions.Authorization(ctx)
		switch {
		case err == nil:
			req = req.Clone(ctx)
			req.Header.Set(httphdr.Authorization, "Bearer "+sent)
		case errors.Is(err, adminsession.ErrExpiredToken):
			closeRequestBody(req)

			return nil, ErrSessionExpired
		case errors.Is(err, adminsession.ErrManagerNotReady):
			closeRequestBody(req)

			return nil, err
		default:
			// Not logged in, let the backend decide.
		}
	}

	resp, err = t.base().RoundTrip(req)
	if err != nil || login || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	_ = resp.Body.Close()
	if sent != "" {
		t.invalidate(ctx, sent)
	}

	return nil, ErrSessionExpired
}

// invalidate ends the session that sent tok.
func (t *Transport) invalidate(ctx context.Context, tok string) {
	ended, err := t.Sessions.InvalidateToken(ctx, tok, adminsession.ReasonUnauthorized)
	if t.Logger == nil {
		return
	}

	if err != nil {
		t.Logger.WarnContext(ctx, "invalidating rejected session", slogutil.KeyError, err)
	} else if !ended {
		t.Logger.DebugContext(ctx, "rejected token no longer current")
	}
}

// base returns the underlying round tripper.
func (t *Transport) base() (rt http.RoundTripper) {
	if t.Base != nil {
		return t.Base
	}

	return http.DefaultTransport
}

// isLoginEndpoint reports whether path addresses a login endpoint.
func isLoginEndpoint(path string) (ok bool) {
	return strings.Contains(path, "/auth/login")
}

// closeRequestBody closes the body of a request that will not be sent, as
// required by the [http.RoundTripper] contract.
func closeRequestBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
