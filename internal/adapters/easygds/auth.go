package easygds

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"swipestay/internal/adapters/observability"
	"swipestay/internal/domain"
)

const (
	authPath = "/api/v2/auth"

	// DefaultTokenTTL stays below the provider's 60 minute token lifetime.
	DefaultTokenTTL = 55 * time.Minute

	// authTimeout bounds a shared authentication, which no single caller can cancel.
	authTimeout = 30 * time.Second
)

// tokenKeys lists where the auth response may carry the token, in order of preference.
var tokenKeys = []string{"token", "access_token", "data.token"}

type Credentials struct {
	Email    string
	Password string
}

// Authenticator is the credential cache: it serves the stored bearer token
// and re-authenticates against the provider on a miss.
type Authenticator struct {
	env   Env
	hc    *http.Client
	creds Credentials
	store domain.TokenStore
	ttl   time.Duration
	sf    singleflight.Group
}

func NewAuthenticator(env Env, creds Credentials, store domain.TokenStore, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{
		env:   env,
		hc:    &http.Client{},
		creds: creds,
		store: store,
		ttl:   ttl,
	}
}

// Token returns a cached, unexpired token or authenticates synchronously.
// Concurrent misses share one authentication call; a caller that gives up
// only abandons its own wait.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if tok, ok := a.cached(ctx); ok {
		return tok, nil
	}
	ch := a.sf.DoChan("token", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), authTimeout)
		defer cancel()

		// a caller that missed just before the previous flight stored its token
		if tok, ok := a.cached(fctx); ok {
			return tok, nil
		}
		tok, err := a.authenticate(fctx)
		observability.ObserveAuth(err)
		if err != nil {
			log.Error().Err(err).Str("err_type", observability.LabelErr(err)).Msg("upstream authentication failed")
			return "", err
		}
		if err := a.store.Set(fctx, tok, a.ttl); err != nil {
			log.Warn().Err(err).Msg("storing upstream token failed")
		}
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "waiting for upstream token")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token; the next Token call re-authenticates.
func (a *Authenticator) Invalidate(ctx context.Context) error {
	return a.store.Del(ctx)
}

func (a *Authenticator) cached(ctx context.Context) (string, bool) {
	tok, ok, err := a.store.Get(ctx)
	if err != nil {
		// a broken backing store degrades to authenticating every time
		log.Warn().Err(err).Msg("reading cached upstream token failed")
		return "", false
	}
	return tok, ok
}

func (a *Authenticator) authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    a.creds.Email,
		"password": a.creds.Password,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.env.url(authPath), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.hc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "easygds auth request")
	}
	defer resp.Body.Close()
	observability.ObserveExternal("easygds", authPath, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.Wrap(err, "easygds auth read")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.AuthenticationError{Status: resp.StatusCode, Reason: snippet(body)}
	}

	tok := extractToken(body)
	if tok == "" {
		return "", &domain.AuthenticationError{Status: resp.StatusCode, Reason: "no token in auth response"}
	}
	log.Debug().Dur("ttl", a.ttl).Msg("upstream token acquired")
	return tok, nil
}

func extractToken(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, k := range tokenKeys {
		if s := strings.TrimSpace(gjson.GetBytes(body, k).String()); s != "" {
			return s
		}
	}
	return ""
}

// snippet keeps error bodies short enough for logs and error messages.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
