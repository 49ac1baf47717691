package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T, backendURL string) (a *app, shell *httptest.Server) {
	t.Helper()

	conf := defaultFileConfig()
	conf.API.BaseURL = backendURL
	conf.Storage.Backend = backendMemory
	conf.Metrics.Enabled = true

	a, err := newApp(testutil.ContextWithTimeout(t, testTimeout), conf, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(a.close)

	h, err := a.newShellHandler()
	require.NoError(t, err)

	shell = httptest.NewServer(h)
	t.Cleanup(shell.Close)

	return a, shell
}

func doShell(t *testing.T, method, url, body string) (status int, respBody string) {
	t.Helper()

	req, err := http.NewRequestWithContext(testutil.ContextWithTimeout(t, testTimeout), method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, resp.Body.Close)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(b)
}

func TestShell(t *testing.T) {
	backend := newFakeBackend(t)
	a, shell := newTestShell(t, backend.URL)

	status, _ := doShell(t, http.MethodGet, shell.URL+"/api/admin/echo", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := doShell(t, http.MethodPost, shell.URL+"/api/admin/auth/login", `{"username":"admin@localhost","password":"pw"}`)
	require.Equal(t, http.StatusOK, status, body)

	var loginResp struct {
		Result struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"result"`
		IsSuccess bool `json:"isSuccess"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &loginResp))
	assert.True(t, loginResp.IsSuccess)
	assert.Equal(t, "1", loginResp.Result.ID)

	status, body = doShell(t, http.MethodGet, shell.URL+"/api/admin/echo", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bearer "+a.manager.State().Token, body)

	status, body = doShell(t, http.MethodGet, shell.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "adminsession_login_success_total 1")

	status, body = doShell(t, http.MethodGet, shell.URL+"/session", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"authenticated":true`)

	// The backend rejecting the token ends the session.
	status, _ = doShell(t, http.MethodGet, shell.URL+"/api/admin/revoked", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, a.manager.State().Authenticated)
}

func TestShell_loginErrors(t *testing.T) {
	backend := newFakeBackend(t)
	_, shell := newTestShell(t, backend.URL)

	status, _ := doShell(t, http.MethodPost, shell.URL+"/api/admin/auth/login", `{"username":"admin@localhost"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doShell(t, http.MethodPost, shell.URL+"/api/admin/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestShell_logout(t *testing.T) {
	backend := newFakeBackend(t)
	a, shell := newTestShell(t, backend.URL)

	status, body := doShell(t, http.MethodPost, shell.URL+"/api/admin/auth/login", `{"username":"admin@localhost","password":"pw"}`)
	require.Equal(t, http.StatusOK, status, body)

	status, _ = doShell(t, http.MethodPost, shell.URL+"/session/logout", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.False(t, a.manager.State().Authenticated)
}
