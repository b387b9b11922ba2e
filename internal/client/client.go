// Package client implements the resilient resource client: every remote
// operation runs with the shared access token and is retried once with a
// freshly minted token when it fails.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fivetwenty-io/cfsync/internal/auth"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/http"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
)

// TokenProvider is the token cache the client draws from. *auth.Session
// satisfies it.
type TokenProvider interface {
	GetToken(ctx context.Context) (*auth.AccessToken, error)
	InvalidateToken()
}

// Tracer runs traced cf commands. *cli.Session satisfies it.
type Tracer interface {
	Traced(ctx context.Context, requestPath string, args ...string) ([][]byte, error)
}

// Client implements capi.ResourceClient.
type Client struct {
	tokens TokenProvider
	tracer Tracer
	logger capi.Logger
	budget int
	pool   *controllerPool
}

var _ capi.ResourceClient = (*Client)(nil)

// controllerPool keeps one HTTP transport per platform address.
type controllerPool struct {
	mu          sync.Mutex
	config      *capi.Config
	controllers map[string]*CloudController
}

// New creates a client. tracer may be nil when no operation needs the cf
// executable.
func New(tokens TokenProvider, tracer Tracer, config *capi.Config) *Client {
	if config == nil {
		config = &capi.Config{RetryBudget: constants.DefaultRetryBudget}
	}

	logger := config.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	budget := config.RetryBudget
	if budget < 0 {
		budget = 0
	}

	return &Client{
		tokens: tokens,
		tracer: tracer,
		logger: logger,
		budget: budget,
		pool: &controllerPool{
			config:      config,
			controllers: make(map[string]*CloudController),
		},
	}
}

// WithRetryBudget returns a client sharing the same transports and token cache
// that retries up to budget times.
func (c *Client) WithRetryBudget(budget int) *Client {
	copied := *c
	if budget < 0 {
		budget = 0
	}

	copied.budget = budget

	return &copied
}

// RetryBudget returns the number of invalidate-and-retry cycles per operation.
func (c *Client) RetryBudget() int {
	return c.budget
}

func (p *controllerPool) get(platform *capi.PlatformInstance) *CloudController {
	address := strings.TrimSuffix(platform.APIAddress, "/")
	if address == "" {
		address = strings.TrimSuffix(p.config.APIEndpoint, "/")
	}

	key := fmt.Sprintf("%s|%t", address, platform.SkipSSLValidation)

	p.mu.Lock()
	defer p.mu.Unlock()

	if controller, ok := p.controllers[key]; ok {
		return controller
	}

	opts := []http.Option{
		http.WithUserAgent(p.config.UserAgent),
		http.WithTimeout(p.config.HTTPTimeout),
		http.WithSkipTLSVerify(p.config.SkipTLSVerify || platform.SkipSSLValidation),
	}

	if p.config.Logger != nil {
		opts = append(opts, http.WithLogger(p.config.Logger), http.WithDebug(p.config.Debug))
	}

	if p.config.HTTPRetryMax > 0 {
		waitMin, waitMax := p.config.RetryWaitMin, p.config.RetryWaitMax
		if waitMin <= 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		if waitMax <= 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, http.WithRetryConfig(p.config.HTTPRetryMax, waitMin, waitMax))
	}

	controller := NewCloudController(http.NewClient(address, opts...))
	p.controllers[key] = controller

	return controller
}

// remoteCall is one attempt of an operation with a valid token.
type remoteCall[T any] func(ctx context.Context, token *auth.AccessToken) (T, error)

// execute runs call with the cached token. A failed call invalidates the token
// and is retried while budget remains. Token acquisition failures and errors
// caused by an invalid refresh token are never retried.
func execute[T any](ctx context.Context, c *Client, operation string, budget int, call remoteCall[T]) capi.Result[T] {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return failure[T](c, operation, err)
	}

	content, err := call(ctx, token)
	if err == nil {
		return capi.Success(content)
	}

	if !retryable(ctx, err) || budget <= 0 {
		return failure[T](c, operation, err)
	}

	c.tokens.InvalidateToken()
	c.logger.Warn("remote call failed, retrying with a new token", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
		"remaining": budget - 1,
	})

	return execute(ctx, c, operation, budget-1, call)
}

func failure[T any](c *Client, operation string, err error) capi.Result[T] {
	kind := capi.FailureOther
	if errors.Is(err, constants.ErrInvalidRefreshToken) {
		kind = capi.FailureInvalidRefreshToken
	}

	c.logger.Error("remote call failed", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
		"kind":      kind.String(),
	})

	return capi.Failure[T](kind, err)
}

func retryable(ctx context.Context, err error) bool {
	switch {
	case ctx.Err() != nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, constants.ErrInvalidRefreshToken):
		return false
	case errors.Is(err, constants.ErrCLIResponseParse):
		return false
	default:
		return true
	}
}

// ListOrganizations lists every organization of a platform.
func (c *Client) ListOrganizations(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Organization] {
	if platform == nil {
		return capi.Failure[[]*capi.Organization](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(platform)

	return execute(ctx, c, "ListOrganizations", c.budget, func(ctx context.Context, token *auth.AccessToken) ([]*capi.Organization, error) {
		orgs, err := controller.WithToken(token.OAuth2()).ListOrganizations(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]*capi.Organization, 0, len(orgs))
		for i := range orgs {
			orgs[i].Platform = platform
			out = append(out, &orgs[i])
		}

		return out, nil
	})
}

// ListSpaces lists the spaces of an organization.
func (c *Client) ListSpaces(ctx context.Context, org *capi.Organization) capi.Result[[]*capi.Space] {
	if org == nil {
		return capi.Failure[[]*capi.Space](capi.FailureOther, constants.ErrMissingParent)
	}

	if org.Platform == nil {
		return capi.Failure[[]*capi.Space](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(org.Platform)

	return execute(ctx, c, "ListSpaces", c.budget, func(ctx context.Context, token *auth.AccessToken) ([]*capi.Space, error) {
		spaces, err := controller.WithToken(token.OAuth2()).ListSpaces(ctx, org.GUID)
		if err != nil {
			return nil, err
		}

		out := make([]*capi.Space, 0, len(spaces))
		for i := range spaces {
			spaces[i].Organization = org
			out = append(out, &spaces[i])
		}

		return out, nil
	})
}

// ListApplications lists the applications of a space.
func (c *Client) ListApplications(ctx context.Context, space *capi.Space) capi.Result[[]*capi.App] {
	if space == nil {
		return capi.Failure[[]*capi.App](capi.FailureOther, constants.ErrMissingParent)
	}

	platform := space.Platform()
	if platform == nil {
		return capi.Failure[[]*capi.App](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(platform)

	return execute(ctx, c, "ListApplications", c.budget, func(ctx context.Context, token *auth.AccessToken) ([]*capi.App, error) {
		apps, err := controller.WithToken(token.OAuth2()).ListApps(ctx, space.GUID)
		if err != nil {
			return nil, err
		}

		out := make([]*capi.App, 0, len(apps))
		for i := range apps {
			apps[i].Space = space
			out = append(out, &apps[i])
		}

		return out, nil
	})
}

// GetApp fetches one application. The result is not linked to a space.
func (c *Client) GetApp(ctx context.Context, platform *capi.PlatformInstance, guid string) capi.Result[*capi.App] {
	if platform == nil {
		return capi.Failure[*capi.App](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(platform)

	return execute(ctx, c, "GetApp", c.budget, func(ctx context.Context, token *auth.AccessToken) (*capi.App, error) {
		return controller.WithToken(token.OAuth2()).GetApp(ctx, guid)
	})
}

// StartApp starts app and marks the snapshot STARTED.
func (c *Client) StartApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return c.mutate(ctx, "StartApp", app, capi.AppStateStarted, (*CloudController).StartApp)
}

// StopApp stops app and marks the snapshot STOPPED.
func (c *Client) StopApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return c.mutate(ctx, "StopApp", app, capi.AppStateStopped, (*CloudController).StopApp)
}

// RestartApp restarts app and marks the snapshot STARTED.
func (c *Client) RestartApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return c.mutate(ctx, "RestartApp", app, capi.AppStateStarted, (*CloudController).RestartApp)
}

// DeleteApp deletes app and marks the snapshot DELETED.
func (c *Client) DeleteApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return c.mutate(ctx, "DeleteApp", app, capi.AppStateDeleted,
		func(controller *CloudController, ctx context.Context, guid string) (*capi.App, error) {
			return nil, controller.DeleteApp(ctx, guid)
		})
}

type appAction func(controller *CloudController, ctx context.Context, guid string) (*capi.App, error)

// mutate runs action and updates the caller's snapshot in place on success,
// preferring the state reported by the platform.
func (c *Client) mutate(ctx context.Context, operation string, app *capi.App, state capi.AppState, action appAction) capi.Result[*capi.App] {
	platform := app.Platform()
	if platform == nil {
		return capi.Failure[*capi.App](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(platform)

	res := execute(ctx, c, operation, c.budget, func(ctx context.Context, token *auth.AccessToken) (*capi.App, error) {
		return action(controller.WithToken(token.OAuth2()), ctx, app.GUID)
	})
	if !res.Succeeded {
		return res
	}

	app.State = state
	if res.Content != nil && res.Content.State != "" && state != capi.AppStateDeleted {
		app.State = res.Content.State
	}

	return capi.Success(app)
}

// ListBuildpacks lists the buildpacks of a platform.
func (c *Client) ListBuildpacks(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Buildpack] {
	if platform == nil {
		return capi.Failure[[]*capi.Buildpack](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(platform)

	return execute(ctx, c, "ListBuildpacks", c.budget, func(ctx context.Context, token *auth.AccessToken) ([]*capi.Buildpack, error) {
		buildpacks, err := controller.WithToken(token.OAuth2()).ListBuildpacks(ctx)
		if err != nil {
			return nil, err
		}

		return pointers(buildpacks), nil
	})
}

// ListStacks lists the stacks of a platform.
func (c *Client) ListStacks(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Stack] {
	if platform == nil {
		return capi.Failure[[]*capi.Stack](capi.FailureOther, constants.ErrMissingPlatform)
	}

	controller := c.pool.get(platform)

	return execute(ctx, c, "ListStacks", c.budget, func(ctx context.Context, token *auth.AccessToken) ([]*capi.Stack, error) {
		stacks, err := controller.WithToken(token.OAuth2()).ListStacks(ctx)
		if err != nil {
			return nil, err
		}

		return pointers(stacks), nil
	})
}

// offeringsPage is a service offerings page with its included brokers.
type offeringsPage struct {
	capi.ListResponse[capi.ServiceOffering]

	Included struct {
		ServiceBrokers []struct {
			GUID string `json:"guid"`
			Name string `json:"name"`
		} `json:"service_brokers"`
	} `json:"included"`
}

// ListServiceOfferings lists the marketplace through "cf marketplace". The cf
// session must target platform.
func (c *Client) ListServiceOfferings(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.ServiceOffering] {
	if platform == nil {
		return capi.Failure[[]*capi.ServiceOffering](capi.FailureOther, constants.ErrMissingPlatform)
	}

	if c.tracer == nil {
		return capi.Failure[[]*capi.ServiceOffering](capi.FailureOther, capi.ErrCLIRequired)
	}

	return execute(ctx, c, "ListServiceOfferings", c.budget, func(ctx context.Context, _ *auth.AccessToken) ([]*capi.ServiceOffering, error) {
		bodies, err := c.tracer.Traced(ctx, "/v3/service_offerings", "marketplace")
		if err != nil {
			return nil, err
		}

		offerings := make([]*capi.ServiceOffering, 0)

		for _, body := range bodies {
			var page offeringsPage

			err := json.Unmarshal(body, &page)
			if err != nil {
				return nil, fmt.Errorf("%w: service offerings: %w", constants.ErrCLIResponseParse, err)
			}

			brokers := make(map[string]string, len(page.Included.ServiceBrokers))
			for _, broker := range page.Included.ServiceBrokers {
				brokers[broker.GUID] = broker.Name
			}

			for i := range page.Resources {
				offering := &page.Resources[i]
				offering.BrokerName = brokers[offering.Relationships.ServiceBroker.GUID()]
				offerings = append(offerings, offering)
			}
		}

		return offerings, nil
	})
}

func pointers[T any](items []T) []*T {
	out := make([]*T, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}

	return out
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]interface{}) {}
func (noopLogger) Info(string, map[string]interface{})  {}
func (noopLogger) Warn(string, map[string]interface{})  {}
func (noopLogger) Error(string, map[string]interface{}) {}
