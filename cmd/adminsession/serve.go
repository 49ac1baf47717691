package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/honjaopseoye/adminsession/client"
	"github.com/honjaopseoye/adminsession/metrics/export/prometheus"
	"github.com/honjaopseoye/adminsession/middleware"
)

const shutdownTimeout = 5 * time.Second

// serve runs the local shell server until ctx is canceled.
func (a *app) serve(ctx context.Context) (err error) {
	h, err := a.newShellHandler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.conf.Serve.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer slogutil.RecoverAndLog(ctx, a.logger)

		a.logger.InfoContext(ctx, "serving", "addr", srv.Addr, "api", a.conf.API.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.InfoContext(ctx, "shutting down")

	return srv.Shutdown(shutdownCtx)
}

// newShellHandler returns the routes of the local shell:
//
//	GET  /session                session state
//	POST /session/logout         end the session
//	POST /api/admin/auth/login   log in and store the session
//	*    /api/...                proxied to the backend with the session token
//	GET  /metrics                Prometheus metrics, if enabled
func (a *app) newShellHandler() (h http.Handler, err error) {
	c, err := a.newClient()
	if err != nil {
		return nil, err
	}

	backend, err := url.Parse(strings.TrimSuffix(c.BaseURL(), "/api"))
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(backend)
			pr.Out.Header.Del(httphdr.Authorization)
			pr.Out.Header.Del(httphdr.Cookie)
		},
		Transport: &client.Transport{
			Sessions: a.manager,
			Logger:   a.logger,
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, client.ErrSessionExpired) {
				http.Error(w, err.Error(), http.StatusUnauthorized)

				return
			}

			a.logger.WarnContext(r.Context(), "proxying", "path", r.URL.Path, slogutil.KeyError, err)
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.manager.State())
	})
	mux.HandleFunc("POST /session/logout", func(w http.ResponseWriter, r *http.Request) {
		if lErr := c.AdminLogout(r.Context()); lErr != nil {
			a.logger.WarnContext(r.Context(), "logging out", slogutil.KeyError, lErr)
		}

		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api"+client.LoginEndpoint, a.handleLogin(c))
	mux.Handle("/api/", middleware.RequireSession(a.manager)(proxy))

	if a.conf.Metrics.Enabled {
		mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(a.manager).Handler())
	}

	return mux, nil
}

// handleLogin logs in with the credentials in the request body.
func (a *app) handleLogin(c *client.Client) (h http.HandlerFunc) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)

			return
		}

		id, err := c.AdminLogin(r.Context(), req.Username, req.Password)
		if err != nil {
			status := http.StatusBadGateway
			apiErr := &client.APIError{}
			switch {
			case errors.As(err, &apiErr):
				status = apiErr.Status
				if status < http.StatusBadRequest {
					status = http.StatusUnauthorized
				}
			case errors.Is(err, client.ErrMissingCredentials):
				status = http.StatusBadRequest
			}

			writeJSON(w, status, map[string]any{"isSuccess": false, "message": err.Error()})

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"isSuccess": true, "result": id})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(httphdr.ContentType, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
