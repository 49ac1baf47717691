package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/honjaopseoye/adminsession"
)

// LoginEndpoint is the admin login endpoint, relative to the API root.
const LoginEndpoint = "/admin/auth/login"

// Response is the envelope the backend wraps every payload in.
type Response[T any] struct {
	Result    T      `json:"result"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	IsSuccess bool   `json:"isSuccess"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// loginRequest is the body of a login request.  The backend calls the email
// a username.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin authenticates with the backend and records the returned session.
// A response without an access token is returned as *APIError.  The refresh
// token is not used.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (id adminsession.Identity, err error) {
	if email == "" || password == "" {
		return adminsession.Identity{}, ErrMissingCredentials
	}

	resp := &Response[*LoginResult]{}
	err = c.Post(ctx, LoginEndpoint, loginRequest{Username: email, Password: password}, resp)
	if err != nil {
		// Don't wrap the error, because callers show it as is.
		return adminsession.Identity{}, err
	}

	if !resp.IsSuccess || resp.Result == nil || resp.Result.AccessToken == "" {
		msg := resp.Message
		if msg == "" {
			msg = loginFailedMsg
		}

		return adminsession.Identity{}, &APIError{
			Code:    resp.Code,
			Message: msg,
			Status:  http.StatusOK,
		}
	}

	id, err = c.sessions.LoginWithToken(ctx, resp.Result.AccessToken)
	if err != nil {
		return adminsession.Identity{}, fmt.Errorf("recording session: %w", err)
	}

	c.logger.InfoContext(ctx, "admin logged in", "user_id", id.ID, "role", id.Role)

	return id, nil
}

// AdminLogout ends the session locally.  The backend is not called.
func (c *Client) AdminLogout(ctx context.Context) (err error) {
	return c.sessions.Logout(ctx)
}
