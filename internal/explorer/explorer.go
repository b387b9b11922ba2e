// Package explorer binds the Cloud Foundry hierarchy (platform, organization,
// space, application) to a live tree backed by the resilient client.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Static errors for err113 compliance.
var (
	ErrReauthenticationRequired = errors.New("platform requires a new login")
)

// Node kinds.
const (
	KindWorkspace    = "workspace"
	KindPlatform     = "platform"
	KindOrganization = "organization"
	KindSpace        = "space"
	KindApplication  = "application"
)

// Workspace is the synthetic root above the configured platforms.
type Workspace struct {
	Name      string
	Platforms []*capi.PlatformInstance
}

// Explorer owns the tree of one workspace.
type Explorer struct {
	client    capi.ResourceClient
	logger    capi.Logger
	workspace *Workspace
	tree      *tree.Tree

	mu     sync.Mutex
	locked map[string]bool
}

// New builds the workspace tree. opts configure the underlying tree.
func New(client capi.ResourceClient, workspace *Workspace, logger capi.Logger, opts ...tree.Option) *Explorer {
	e := &Explorer{
		client:    client,
		logger:    logger,
		workspace: workspace,
		locked:    make(map[string]bool),
	}

	if e.logger == nil {
		e.logger = logging.Discard()
	}

	apps := &tree.Level[*capi.App]{
		Name:    KindApplication,
		KeyOf:   func(app *capi.App) string { return app.GUID },
		LabelOf: appLabel,
	}

	spaces := &tree.Level[*capi.Space]{
		Name:    KindSpace,
		KeyOf:   func(space *capi.Space) string { return space.GUID },
		LabelOf: func(space *capi.Space) string { return space.Name },
		Empty:   "[No applications]",
		Fetch:   e.fetchApps,
		Next:    apps,
	}

	orgs := &tree.Level[*capi.Organization]{
		Name:    KindOrganization,
		KeyOf:   func(org *capi.Organization) string { return org.GUID },
		LabelOf: orgLabel,
		Empty:   "[No spaces]",
		Fetch:   e.fetchSpaces,
		Next:    spaces,
	}

	platforms := &tree.Level[*capi.PlatformInstance]{
		Name:    KindPlatform,
		KeyOf:   func(p *capi.PlatformInstance) string { return p.Name },
		LabelOf: e.platformLabel,
		Empty:   "[No organizations]",
		Fetch:   e.fetchOrgs,
		Next:    orgs,
	}

	root := &tree.Level[*Workspace]{
		Name:    KindWorkspace,
		KeyOf:   func(w *Workspace) string { return w.Name },
		LabelOf: func(w *Workspace) string { return w.Name },
		Empty:   "[No platforms]",
		Fetch: func(_ context.Context, w *Workspace) ([]any, error) {
			return tree.Items(w.Platforms), nil
		},
		Next: platforms,
	}

	e.tree = tree.New(workspace, root, opts...)

	return e
}

// Tree returns the live tree.
func (e *Explorer) Tree() *tree.Tree {
	return e.tree
}

// Workspace returns the root item.
func (e *Explorer) Workspace() *Workspace {
	return e.workspace
}

// Locked reports whether platform waits for a new login.
func (e *Explorer) Locked(platform string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.locked[platform]
}

// Unlock allows platform to be expanded again after a successful login.
func (e *Explorer) Unlock(platform string) {
	e.mu.Lock()
	delete(e.locked, platform)
	e.mu.Unlock()

	if node := e.find(platform); node != nil {
		var item any

		e.tree.Read(func() { item = node.Item() })
		e.tree.Replace(node, item)
	}
}

// lock marks platform as requiring a login and collapses its node.
func (e *Explorer) lock(platform *capi.PlatformInstance) {
	if platform == nil {
		return
	}

	e.mu.Lock()
	e.locked[platform.Name] = true
	e.mu.Unlock()

	e.logger.Warn("platform locked until the next login", map[string]interface{}{
		"platform": platform.Name,
	})

	if node := e.find(platform.Name); node != nil {
		e.tree.Collapse(node)
	}
}

func (e *Explorer) find(keys ...string) *tree.Node {
	var node *tree.Node

	e.tree.Read(func() { node = e.tree.Find(keys...) })

	return node
}

// check converts a failed result into an error, locking platform when the
// login cannot mint tokens anymore.
func check[T any](e *Explorer, platform *capi.PlatformInstance, res capi.Result[T]) (T, error) {
	if res.Succeeded {
		return res.Content, nil
	}

	err := res.AsError()
	if res.FailureKind == capi.FailureInvalidRefreshToken {
		e.lock(platform)

		return res.Content, fmt.Errorf("%w: %w", ErrReauthenticationRequired, err)
	}

	return res.Content, err
}

func (e *Explorer) guard(platform *capi.PlatformInstance) error {
	if platform != nil && e.Locked(platform.Name) {
		return fmt.Errorf("%w: %s", ErrReauthenticationRequired, platform.Name)
	}

	return nil
}

func (e *Explorer) fetchOrgs(ctx context.Context, platform *capi.PlatformInstance) ([]any, error) {
	err := e.guard(platform)
	if err != nil {
		return nil, err
	}

	orgs, err := check(e, platform, e.client.ListOrganizations(ctx, platform))
	if err != nil {
		return nil, err
	}

	return tree.Items(orgs), nil
}

func (e *Explorer) fetchSpaces(ctx context.Context, org *capi.Organization) ([]any, error) {
	err := e.guard(org.Platform)
	if err != nil {
		return nil, err
	}

	spaces, err := check(e, org.Platform, e.client.ListSpaces(ctx, org))
	if err != nil {
		return nil, err
	}

	return tree.Items(spaces), nil
}

func (e *Explorer) fetchApps(ctx context.Context, space *capi.Space) ([]any, error) {
	err := e.guard(space.Platform())
	if err != nil {
		return nil, err
	}

	apps, err := check(e, space.Platform(), e.client.ListApplications(ctx, space))
	if err != nil {
		return nil, err
	}

	return tree.Items(apps), nil
}

func (e *Explorer) platformLabel(p *capi.PlatformInstance) string {
	if e.Locked(p.Name) {
		return p.Name + " [login required]"
	}

	return p.Name
}

func orgLabel(org *capi.Organization) string {
	if org.Suspended {
		return org.Name + " (suspended)"
	}

	return org.Name
}

func appLabel(app *capi.App) string {
	if app.State == "" {
		return app.Name
	}

	return fmt.Sprintf("%s (%s)", app.Name, StateLabel(app.State))
}

// StateLabel renders an application state for display, e.g. "Started".
func StateLabel(state capi.AppState) string {
	return cases.Title(language.English).String(strings.ToLower(string(state)))
}

// ExpandTo expands every node above depth, where the workspace is at depth 0
// and applications at depth 4. Independent branches expand concurrently and
// their failures are joined.
func (e *Explorer) ExpandTo(ctx context.Context, depth int) error {
	return e.expandTo(ctx, e.tree.Root(), depth)
}

func (e *Explorer) expandTo(ctx context.Context, node *tree.Node, depth int) error {
	var level int

	e.tree.Read(func() { level = node.Depth() })

	if level >= depth {
		return nil
	}

	err := e.tree.Expand(ctx, node)
	if err != nil {
		return err
	}

	var children []*tree.Node

	e.tree.Read(func() {
		for _, child := range node.Children() {
			if !child.Leaf() {
				children = append(children, child)
			}
		}
	})

	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)

	group.SetLimit(constants.DefaultRefreshConcurrency)

	for _, child := range children {
		group.Go(func() error {
			err := e.expandTo(ctx, child, depth)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = group.Wait()

	return errors.Join(errs...)
}

// Locate expands the path to an application by names and returns its node.
func (e *Explorer) Locate(ctx context.Context, platform, org, space, app string) (*tree.Node, error) {
	root := e.tree.Root()

	err := e.tree.Expand(ctx, root)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		name     string
		notFound error
		match    func(item any) bool
	}{
		{platform, constants.ErrPlatformNotFound, func(item any) bool {
			p, ok := item.(*capi.PlatformInstance)

			return ok && p.Name == platform
		}},
		{org, constants.ErrOrganizationNotFound, func(item any) bool {
			o, ok := item.(*capi.Organization)

			return ok && o.Name == org
		}},
		{space, constants.ErrSpaceNotFound, func(item any) bool {
			s, ok := item.(*capi.Space)

			return ok && s.Name == space
		}},
		{app, constants.ErrApplicationNotFound, func(item any) bool {
			a, ok := item.(*capi.App)

			return ok && a.Name == app
		}},
	}

	node := root

	for i, step := range steps {
		var next *tree.Node

		e.tree.Read(func() {
			for _, child := range node.Children() {
				if !child.IsPlaceholder() && step.match(child.Item()) {
					next = child

					break
				}
			}
		})

		if next == nil {
			return nil, fmt.Errorf("%w: %s", step.notFound, step.name)
		}

		node = next

		if i < len(steps)-1 {
			err := e.tree.Expand(ctx, node)
			if err != nil {
				return nil, err
			}
		}
	}

	return node, nil
}

// App returns the application snapshot of node.
func (e *Explorer) App(node *tree.Node) (*capi.App, error) {
	var item any

	e.tree.Read(func() { item = node.Item() })

	app, ok := item.(*capi.App)
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrNotAnApplication, node.Kind())
	}

	return app, nil
}

type mutation func(ctx context.Context, app *capi.App) capi.Result[*capi.App]

// StartApp starts the application of node.
func (e *Explorer) StartApp(ctx context.Context, node *tree.Node) error {
	return e.mutate(ctx, node, e.client.StartApp)
}

// StopApp stops the application of node.
func (e *Explorer) StopApp(ctx context.Context, node *tree.Node) error {
	return e.mutate(ctx, node, e.client.StopApp)
}

// RestartApp restarts the application of node.
func (e *Explorer) RestartApp(ctx context.Context, node *tree.Node) error {
	return e.mutate(ctx, node, e.client.RestartApp)
}

// DeleteApp deletes the application of node and refreshes its space.
func (e *Explorer) DeleteApp(ctx context.Context, node *tree.Node) error {
	err := e.mutate(ctx, node, e.client.DeleteApp)
	if err != nil {
		return err
	}

	return e.tree.Refresh(ctx, node.Parent())
}

// mutate runs op on a copy of the snapshot and swaps the updated copy into
// the node, so readers on the owner never see a half-written snapshot.
func (e *Explorer) mutate(ctx context.Context, node *tree.Node, op mutation) error {
	current, err := e.App(node)
	if err != nil {
		return err
	}

	err = e.guard(current.Platform())
	if err != nil {
		return err
	}

	app := *current

	updated, err := check(e, app.Platform(), op(ctx, &app))
	if err != nil {
		return err
	}

	e.tree.Replace(node, updated)

	e.logger.Info("application updated", map[string]interface{}{
		"app":   updated.Name,
		"state": string(updated.State),
	})

	return nil
}
