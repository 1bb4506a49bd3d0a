// internal/adapters/easygds/client.go
package easygds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"swipestay/internal/adapters/observability"
	"swipestay/internal/domain"
)

// Env is the execution context of every upstream call.
type Env struct {
	BaseURL   string
	Territory string // forwarded as X-Territory on POST when set
}

func (e Env) url(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + path
}

// TokenSource hands out bearer tokens and forgets them when upstream rejects one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

type Client struct {
	env  Env
	hc   *http.Client
	auth TokenSource
	rl   *rate.Limiter
}

// New builds the gateway. The client has no timeout of its own: callers bound
// calls through ctx and the provider-side timeout hint.
func New(env Env, auth TokenSource, rps int) (*Client, error) {
	if env.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		env:  env,
		hc:   &http.Client{},
		auth: auth,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request body")
	}
	return c.do(ctx, http.MethodPost, path, b)
}

// attempt is the state of one gateway call. The only transition that issues
// a second request is firstAttempt -> retryingAfterRefresh on a 401.
type attempt int

const (
	firstAttempt attempt = iota
	retryingAfterRefresh
	done
)

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var res response
	for state := firstAttempt; state != done; {
		token, err := c.auth.Token(ctx)
		if err != nil {
			return nil, err
		}
		res, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}

		switch {
		case state == firstAttempt && res.status == http.StatusUnauthorized:
			// shared cache: other requests pick up the fresh token too
			if err := c.auth.Invalidate(ctx); err != nil {
				log.Warn().Err(err).Msg("invalidating upstream token failed")
			}
			observability.ObserveRetry(method)
			log.Debug().Str("method", method).Str("path", endpoint(path)).Msg("upstream rejected token, retrying once")
			state = retryingAfterRefresh
		default:
			state = done
		}
	}

	if res.status < 200 || res.status > 299 {
		return nil, &domain.UpstreamError{
			Status:  res.status,
			Method:  method,
			Path:    endpoint(path),
			Message: snippet(res.body),
		}
	}
	if len(bytes.TrimSpace(res.body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(res.body) {
		return nil, errors.Newf("easygds %s %s: invalid JSON body", method, endpoint(path))
	}
	return json.RawMessage(res.body), nil
}

// send issues one HTTP request with a fresh request object and drains the body.
func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (response, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return response{}, err
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.env.url(path), rdr)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "swipestay/1.0")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json;charset=UTF-8")
		if c.env.Territory != "" {
			req.Header.Set("X-Territory", c.env.Territory)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, ctx.Err()
		}
		return response{}, errors.Wrapf(err, "easygds %s %s", method, endpoint(path))
	}
	defer resp.Body.Close()
	observability.ObserveExternal("easygds", endpoint(path), resp.StatusCode, time.Since(start))

	b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return response{}, errors.Wrapf(err, "easygds %s %s: read body", method, endpoint(path))
	}
	return response{status: resp.StatusCode, body: b}, nil
}

// endpoint strips the query so metric labels stay bounded.
func endpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
