package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/donaldgifford/game-price-tracker/internal/metrics"
)

const (
	tokenPath     = "/identity/v1/oauth2/token" //nolint:gosec // not a credential
	defaultScope  = "https://api.ebay.com/oauth/api_scope"
	refreshBuffer = 60 * time.Second
)

// ErrMissingCredentials is returned when neither a static bearer token nor
// an OAuth client id/secret pair is configured.
var ErrMissingCredentials = errors.New("eBay credentials missing: set EBAY_BEARER_TOKEN or EBAY_CLIENT_ID and EBAY_CLIENT_SECRET")

// StaticTokenProvider always returns the same bearer token. Used for
// development overrides; there is nothing to cache or refresh.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for a fixed bearer token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// Token returns the static token.
func (p *StaticTokenProvider) Token(context.Context) (string, error) {
	return p.token, nil
}

// Invalidate is a no-op for static tokens.
func (*StaticTokenProvider) Invalidate(string) {}

// OAuthTokenProvider implements TokenProvider using the eBay OAuth2
// client credentials flow. It caches the token and refreshes it when expired
// or within 60 seconds of expiry. Thread-safe via mutex.
type OAuthTokenProvider struct {
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client
	scopes       string
	timeout      time.Duration

	mu      sync.Mutex
	token   string
	expiry  time.Time
	nowFunc func() time.Time // for testing
}

// OAuthOption configures the OAuthTokenProvider.
type OAuthOption func(*OAuthTokenProvider)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) OAuthOption {
	return func(p *OAuthTokenProvider) {
		p.tokenURL = u
	}
}

// WithAPIBase points the token endpoint at {base}/identity/v1/oauth2/token.
func WithAPIBase(base string) OAuthOption {
	return func(p *OAuthTokenProvider) {
		p.tokenURL = strings.TrimRight(base, "/") + tokenPath
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) OAuthOption {
	return func(p *OAuthTokenProvider) {
		p.client = c
	}
}

// WithTokenTimeout sets the deadline applied to each token exchange.
func WithTokenTimeout(d time.Duration) OAuthOption {
	return func(p *OAuthTokenProvider) {
		p.timeout = d
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) OAuthOption {
	return func(p *OAuthTokenProvider) {
		p.nowFunc = f
	}
}

// NewOAuthTokenProvider creates a new eBay OAuth2 token provider.
func NewOAuthTokenProvider(
	clientID, clientSecret string,
	opts ...OAuthOption,
) *OAuthTokenProvider {
	p := &OAuthTokenProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultAPIBase + tokenPath,
		client:       &http.Client{},
		scopes:       defaultScope,
		timeout:      defaultRequestTimeout,
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTokenProvider picks the provider for the given credentials: a static
// bearer token wins unconditionally, otherwise client id and secret are
// required. No network call is made here.
func NewTokenProvider(
	bearerToken, clientID, clientSecret string,
	opts ...OAuthOption,
) (TokenProvider, error) {
	if bearerToken != "" {
		return NewStaticTokenProvider(bearerToken), nil
	}
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	return NewOAuthTokenProvider(clientID, clientSecret, opts...), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token returns a valid OAuth2 access token, refreshing if necessary.
func (p *OAuthTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.nowFunc().Before(p.expiry.Add(-refreshBuffer)) {
		return p.token, nil
	}

	return p.refreshLocked(ctx)
}

// Invalidate drops the cached token if it is still the stale one. Callers
// that saw a 401 concurrently therefore trigger a single refresh.
func (p *OAuthTokenProvider) Invalidate(stale string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == stale {
		p.token = ""
		p.expiry = time.Time{}
	}
}

func (p *OAuthTokenProvider) refreshLocked(
	ctx context.Context,
) (string, error) {
	metrics.EbayTokenRefreshesTotal.Inc()

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {p.scopes},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	creds := base64.StdEncoding.EncodeToString(
		[]byte(p.clientID + ":" + p.clientSecret),
	)
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing token request: %w", classifyTransportErr(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", classifyTransportErr(ctx, err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp tokenErrorResponse
		_ = json.Unmarshal(body, &errResp) //nolint:errcheck // best-effort error parsing
		return "", fmt.Errorf(
			"token request failed (status %d): %s - %s",
			resp.StatusCode,
			errResp.Error,
			errResp.ErrorDescription,
		)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("parsing token response: access_token missing")
	}
	if tokenResp.ExpiresIn <= 0 {
		return "", fmt.Errorf("parsing token response: invalid expires_in %d", tokenResp.ExpiresIn)
	}

	p.token = tokenResp.AccessToken
	p.expiry = p.nowFunc().Add(
		time.Duration(tokenResp.ExpiresIn) * time.Second,
	)

	return p.token, nil
}
