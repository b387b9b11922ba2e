package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/http"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"golang.org/x/oauth2"
)

// CloudController talks to the v3 API of one platform with a bound token.
type CloudController struct {
	httpClient *http.Client
}

// NewCloudController wraps an HTTP client for one platform.
func NewCloudController(httpClient *http.Client) *CloudController {
	return &CloudController{httpClient: httpClient}
}

// WithToken returns a copy that authorizes requests with token.
func (c *CloudController) WithToken(token *oauth2.Token) *CloudController {
	return &CloudController{httpClient: c.httpClient.WithToken(token)}
}

// pager adapts a list endpoint to capi.PaginationClient.
type pager[T any] struct {
	httpClient *http.Client
}

func (p pager[T]) ListWithPath(ctx context.Context, path string, params *capi.QueryParams) (*capi.ListResponse[T], error) {
	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	resp, err := p.httpClient.Get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	var result capi.ListResponse[T]

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s list response: %w", path, err)
	}

	return &result, nil
}

func listAll[T any](ctx context.Context, httpClient *http.Client, path, orderBy string, params *capi.QueryParams) ([]T, error) {
	if params == nil {
		params = capi.NewQueryParams()
	}

	params.WithOrderBy(orderBy)

	return capi.FetchAllPages[T](ctx, pager[T]{httpClient: httpClient}, path, params, &capi.PaginationOptions{
		PageSize: constants.StandardPageSize,
		MaxPages: constants.MaxPages,
	})
}

// ListOrganizations returns every organization visible to the token.
func (c *CloudController) ListOrganizations(ctx context.Context) ([]capi.Organization, error) {
	return listAll[capi.Organization](ctx, c.httpClient, "/v3/organizations", "name", nil)
}

// ListSpaces returns the spaces of one organization.
func (c *CloudController) ListSpaces(ctx context.Context, orgGUID string) ([]capi.Space, error) {
	params := capi.NewQueryParams().WithFilter("organization_guids", orgGUID)

	return listAll[capi.Space](ctx, c.httpClient, "/v3/spaces", "name", params)
}

// ListApps returns the applications of one space.
func (c *CloudController) ListApps(ctx context.Context, spaceGUID string) ([]capi.App, error) {
	params := capi.NewQueryParams().WithFilter("space_guids", spaceGUID)

	return listAll[capi.App](ctx, c.httpClient, "/v3/apps", "name", params)
}

// ListBuildpacks returns every buildpack.
func (c *CloudController) ListBuildpacks(ctx context.Context) ([]capi.Buildpack, error) {
	return listAll[capi.Buildpack](ctx, c.httpClient, "/v3/buildpacks", "position", nil)
}

// ListStacks returns every stack.
func (c *CloudController) ListStacks(ctx context.Context) ([]capi.Stack, error) {
	return listAll[capi.Stack](ctx, c.httpClient, "/v3/stacks", "name", nil)
}

// GetApp fetches one application.
func (c *CloudController) GetApp(ctx context.Context, guid string) (*capi.App, error) {
	resp, err := c.httpClient.Get(ctx, "/v3/apps/"+guid, nil)
	if err != nil {
		return nil, fmt.Errorf("getting app: %w", err)
	}

	return decodeApp(resp.Body)
}

// StartApp starts an application.
func (c *CloudController) StartApp(ctx context.Context, guid string) (*capi.App, error) {
	return c.appAction(ctx, guid, "start")
}

// StopApp stops an application.
func (c *CloudController) StopApp(ctx context.Context, guid string) (*capi.App, error) {
	return c.appAction(ctx, guid, "stop")
}

// RestartApp restarts an application.
func (c *CloudController) RestartApp(ctx context.Context, guid string) (*capi.App, error) {
	return c.appAction(ctx, guid, "restart")
}

// DeleteApp deletes an application. The platform deletes asynchronously; the
// accepted job is not awaited.
func (c *CloudController) DeleteApp(ctx context.Context, guid string) error {
	_, err := c.httpClient.Delete(ctx, "/v3/apps/"+guid)
	if err != nil {
		return fmt.Errorf("deleting app: %w", err)
	}

	return nil
}

func (c *CloudController) appAction(ctx context.Context, guid, action string) (*capi.App, error) {
	path := fmt.Sprintf("/v3/apps/%s/actions/%s", guid, action)

	resp, err := c.httpClient.Post(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s app: %w", action, err)
	}

	return decodeApp(resp.Body)
}

func decodeApp(body []byte) (*capi.App, error) {
	var app capi.App

	if len(body) == 0 {
		return &app, nil
	}

	err := json.Unmarshal(body, &app)
	if err != nil {
		return nil, fmt.Errorf("parsing app response: %w", err)
	}

	return &app, nil
}
