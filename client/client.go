package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/ioutil"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/honjaopseoye/adminsession"
)

const (
	// DefaultTimeout is the request timeout used when [WithHTTPClient] is not
	// given.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize is the default upper limit on a response body.
	DefaultMaxResponseSize uint64 = 1 << 20

	// apiPath is the path prefix every API endpoint lives under.
	apiPath = "/api"

	hdrValApplicationJSON = "application/json"
)

// Session is the part of the session manager the client drives.
// [*adminsession.Manager] implements it.
type Session interface {
	Authorizer

	LoginWithToken(ctx context.Context, tok string) (id adminsession.Identity, err error)
	Logout(ctx context.Context) (err error)
}

// Client calls the admin API on behalf of the current session.  It is safe
// for concurrent use.
type Client struct {
	http     *http.Client
	sessions Session
	logger   *slog.Logger
	base     *url.URL

	maxRespSize uint64
}

// Option customizes a [Client].
type Option func(c *Client)

// WithHTTPClient makes the client send requests through a copy of hc whose
// transport is wrapped by [Transport].
func WithHTTPClient(hc *http.Client) (opt Option) {
	return func(c *Client) {
		cp := *hc
		c.http = &cp
	}
}

// WithLogger sets the logger.  The default discards everything.
func WithLogger(l *slog.Logger) (opt Option) {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMaxResponseSize sets the upper limit on a response body.
func WithMaxResponseSize(n uint64) (opt Option) {
	return func(c *Client) {
		c.maxRespSize = n
	}
}

// New returns a client for the API at baseURL.  "/api" is appended to the
// path unless it already ends with it.  sessions must not be nil.
func New(baseURL string, sessions Session, opts ...Option) (c *Client, err error) {
	defer func() { err = errors.Annotate(err, "new client: %w") }()

	if sessions == nil {
		return nil, errors.Error("nil session")
	}

	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c = &Client{
		http:        &http.Client{Timeout: DefaultTimeout},
		sessions:    sessions,
		logger:      slogutil.NewDiscardLogger(),
		base:        base,
		maxRespSize: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.Transport = &Transport{
		Base:     c.http.Transport,
		Sessions: sessions,
		Logger:   c.logger,
	}

	return c, nil
}

// parseBaseURL validates rawURL and appends the API prefix.
func parseBaseURL(rawURL string) (u *url.URL, err error) {
	u, err = url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme: %q is not http or https", u.Scheme)
	} else if u.Host == "" {
		return nil, errors.Error("base url: empty host")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(u.Path, apiPath) {
		u.Path += apiPath
	}
	u.RawQuery = ""
	u.Fragment = ""

	return u, nil
}

// BaseURL returns the API root all endpoints are resolved against.
func (c *Client) BaseURL() (u string) {
	return c.base.String()
}

// Get sends a GET request.  Parameters that are nil are left out of the query.
// The response body, if any, is decoded into out unless out is nil.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]any, out any) (err error) {
	return c.do(ctx, http.MethodGet, endpoint, queryValues(params), nil, out)
}

// Post sends in as a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, endpoint string, in, out any) (err error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, in, out)
}

// Put sends in as a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, endpoint string, in, out any) (err error) {
	return c.do(ctx, http.MethodPut, endpoint, nil, in, out)
}

// Patch sends in as a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, endpoint string, in, out any) (err error) {
	return c.do(ctx, http.MethodPatch, endpoint, nil, in, out)
}

// Delete sends a DELETE request and decodes the response into out.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) (err error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, out)
}

// do performs a request.  Non-2xx responses are returned as *APIError and a
// rejected session as [ErrSessionExpired], both unwrapped.
func (c *Client) do(
	ctx context.Context,
	method string,
	endpoint string,
	query url.Values,
	in any,
	out any,
) (err error) {
	u := c.base.JoinPath(endpoint)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		var b []byte
		b, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request for %s %s: %w", method, endpoint, err)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("making request for %s %s: %w", method, endpoint, err)
	}

	req.Header.Set(httphdr.ContentType, hdrValApplicationJSON)
	req.Header.Set(httphdr.Accept, hdrValApplicationJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			c.logger.InfoContext(ctx, "session rejected", "method", method, "endpoint", endpoint)

			return ErrSessionExpired
		}

		return fmt.Errorf("requesting %s %s: %w", method, endpoint, err)
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	respBody, err := io.ReadAll(ioutil.LimitReader(resp.Body, c.maxRespSize))
	if err != nil {
		return fmt.Errorf("reading response for %s %s: %w", method, endpoint, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.DebugContext(
			ctx,
			"request failed",
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)

		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	err = json.Unmarshal(respBody, out)
	if err != nil {
		return fmt.Errorf("decoding response for %s %s: %w", method, endpoint, err)
	}

	return nil
}

// queryValues converts params into a query, leaving out nil values and nil
// pointers.  Non-nil pointers are dereferenced.
func queryValues(params map[string]any) (q url.Values) {
	q = url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}

			v = rv.Elem().Interface()
		}

		q.Set(k, fmt.Sprint(v))
	}

	return q
}
