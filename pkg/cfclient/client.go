// Package cfclient provides the main entry point for building the resilient
// Cloud Foundry resource client.
package cfclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/auth"
	"github.com/fivetwenty-io/cfsync/internal/cli"
	"github.com/fivetwenty-io/cfsync/internal/client"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/http"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
)

// Client bundles the resilient resource client with the cf session and the
// token cache it draws from.
type Client struct {
	config    *capi.Config
	logger    capi.Logger
	session   *cli.Session
	tokens    *auth.Session
	resources *client.Client
}

// Option configures New.
type Option func(*options)

type options struct {
	runner cli.Runner
}

// WithRunner replaces the cf executable, mostly for tests.
func WithRunner(runner cli.Runner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

// New creates a client. Tokens are minted by the cf executable named in
// config, which must already be logged in or be logged in through Login.
func New(config *capi.Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, capi.ErrConfigRequired
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	runner := o.runner
	if runner == nil {
		runner = &cli.ExecRunner{Binary: config.CFBinary, Home: config.CFHome}
	}

	session := cli.NewSession(runner, logger)
	tokens := auth.NewSession(session, logger)

	return &Client{
		config:    config,
		logger:    logger,
		session:   session,
		tokens:    tokens,
		resources: client.New(tokens, session, config),
	}, nil
}

// Resources returns the resilient client using the configured retry budget.
func (c *Client) Resources() capi.ResourceClient {
	return c.resources
}

// WithRetryBudget returns a resource client sharing this client's token cache
// that retries up to budget times.
func (c *Client) WithRetryBudget(budget int) capi.ResourceClient {
	return c.resources.WithRetryBudget(budget)
}

// TokenStatus describes the cached access token.
type TokenStatus struct {
	User      string    `json:"user,omitempty"       yaml:"user,omitempty"`
	Email     string    `json:"email,omitempty"      yaml:"email,omitempty"`
	ClientID  string    `json:"client_id,omitempty"  yaml:"client_id,omitempty"`
	Issuer    string    `json:"issuer,omitempty"     yaml:"issuer,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"     yaml:"scopes,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitzero"   yaml:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"  yaml:"expires_at,omitempty"`
	Expired   bool      `json:"expired"              yaml:"expired"`
}

// TokenStatus returns the cached token, minting one when the cache is empty.
func (c *Client) TokenStatus(ctx context.Context) (*TokenStatus, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting access token: %w", err)
	}

	claims := token.Claims()

	status := &TokenStatus{
		User:      claims.UserName,
		Email:     claims.Email,
		ClientID:  claims.ClientID,
		Issuer:    claims.Issuer,
		Scopes:    claims.Scope,
		ExpiresAt: token.ExpiresAt(),
		Expired:   token.Expired(time.Now()),
	}

	if claims.IssuedAt > 0 {
		status.IssuedAt = time.Unix(claims.IssuedAt, 0)
	}

	return status, nil
}

// Login authenticates the cf session against platform and primes the token
// cache with a token for the new login.
func (c *Client) Login(ctx context.Context, platform *capi.PlatformInstance, username, password string) (*TokenStatus, error) {
	err := c.session.Authenticate(ctx, platform, username, password)
	if err != nil {
		return nil, err
	}

	c.tokens.InvalidateToken()

	return c.TokenStatus(ctx)
}

// Target selects the organization and space used by traced cf commands.
func (c *Client) Target(ctx context.Context, org, space string) error {
	return c.session.Target(ctx, org, space)
}

// Logout drops the cached token and ends the cf session.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Logout(ctx)
}

// RootInfo holds the endpoints advertised by a Cloud Controller root.
type RootInfo struct {
	CloudControllerV3 string `json:"cloud_controller_v3" yaml:"cloud_controller_v3"`
	UAA               string `json:"uaa"                 yaml:"uaa"`
	Login             string `json:"login"               yaml:"login"`
}

// Probe fetches the API root of platform to check that it is a Cloud Foundry
// API before credentials are sent to it.
func Probe(ctx context.Context, platform *capi.PlatformInstance) (*RootInfo, error) {
	if platform == nil || platform.APIAddress == "" {
		return nil, capi.ErrAPIEndpointRequired
	}

	address := strings.TrimSuffix(platform.APIAddress, "/")
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "https://" + address
	}

	httpClient := http.NewClient(address,
		http.WithTimeout(constants.ShortHTTPTimeout),
		http.WithSkipTLSVerify(platform.SkipSSLValidation),
	)

	resp, err := httpClient.Get(ctx, "/", nil)
	if err != nil {
		return nil, fmt.Errorf("getting root info from %s: %w", address, err)
	}

	var root struct {
		Links map[string]*struct {
			Href string `json:"href"`
		} `json:"links"`
	}

	err = json.Unmarshal(resp.Body, &root)
	if err != nil {
		return nil, fmt.Errorf("parsing root info: %w", err)
	}

	href := func(name string) string {
		if link := root.Links[name]; link != nil {
			return link.Href
		}

		return ""
	}

	info := &RootInfo{
		CloudControllerV3: href("cloud_controller_v3"),
		UAA:               href("uaa"),
		Login:             href("login"),
	}

	if info.CloudControllerV3 == "" {
		return nil, fmt.Errorf("%w: %s", capi.ErrNotCloudController, address)
	}

	if info.UAA == "" && info.Login == "" {
		return nil, capi.ErrNoUAAOrLoginURL
	}

	return info, nil
}
