// Package tree keeps a live, lazily loaded resource hierarchy whose node
// identity and view flags survive refreshes.
package tree

import (
	"context"
	"errors"
	"sync"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"golang.org/x/sync/errgroup"
)

// Notifier observes structural changes. It is called on the owner.
type Notifier interface {
	NodeChanged(n *Node)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n *Node)

// NodeChanged implements Notifier.
func (f NotifierFunc) NodeChanged(n *Node) {
	f(n)
}

// Tree owns a root node and serializes every mutation through its Executor.
type Tree struct {
	root        *Node
	exec        Executor
	notifier    Notifier
	logger      capi.Logger
	concurrency int
}

// Option configures a Tree.
type Option func(*Tree)

// WithExecutor sets the owner. The default is an Inline executor.
func WithExecutor(exec Executor) Option {
	return func(t *Tree) {
		t.exec = exec
	}
}

// WithNotifier sets the change observer.
func WithNotifier(notifier Notifier) Option {
	return func(t *Tree) {
		t.notifier = notifier
	}
}

// WithLogger sets the logger for fetch failures.
func WithLogger(logger capi.Logger) Option {
	return func(t *Tree) {
		t.logger = logger
	}
}

// WithConcurrency bounds the concurrent child refreshes per node in RefreshAll.
func WithConcurrency(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// New creates a tree whose root wraps item. The root starts collapsed.
func New(item any, strategy Strategy, opts ...Option) *Tree {
	t := &Tree{
		exec:        &Inline{},
		notifier:    NotifierFunc(func(*Node) {}),
		logger:      nopLogger{},
		concurrency: constants.DefaultRefreshConcurrency,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.root = newNode(nil, strategy, item)

	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Executor returns the owner of the tree.
func (t *Tree) Executor() Executor {
	return t.exec
}

// Expand shows the children of n and fetches them. Expanding a leaf, a node
// that is loading or one that is already expanded does nothing. On failure n
// collapses again and the error is returned.
func (t *Tree) Expand(ctx context.Context, n *Node) error {
	var (
		item  any
		start bool
	)

	t.exec.Do(func() {
		if n.Leaf() || n.loading || n.expanded || n.detached {
			return
		}

		n.expanded = true
		n.loading = true
		item = n.item
		start = true

		t.notifier.NodeChanged(n)
	})

	if !start {
		return nil
	}

	items, err := n.strategy.FetchChildren(ctx, item)

	var result error

	t.exec.Do(func() {
		n.loading = false

		if n.detached {
			return
		}

		if err != nil {
			n.expanded = false
			result = err

			t.logFailure("expand", n, err)
			t.notifier.NodeChanged(n)

			return
		}

		t.reconcile(n, items)
	})

	return result
}

// Collapse hides the children of n. They stay in memory and an in-flight
// fetch still completes.
func (t *Tree) Collapse(n *Node) {
	t.exec.Do(func() {
		if !n.expanded {
			return
		}

		n.expanded = false

		t.notifier.NodeChanged(n)
	})
}

// Refresh fetches the children of an expanded, settled node again and
// reconciles them. Other nodes are left alone. On failure the previous
// children stay in place and the error is returned.
func (t *Tree) Refresh(ctx context.Context, n *Node) error {
	_, err := t.refresh(ctx, n)

	return err
}

func (t *Tree) refresh(ctx context.Context, n *Node) (bool, error) {
	var item any

	started := false

	t.exec.Do(func() {
		if !n.settled() {
			return
		}

		n.loading = true
		item = n.item
		started = true

		t.notifier.NodeChanged(n)
	})

	if !started {
		return false, nil
	}

	items, err := n.strategy.FetchChildren(ctx, item)

	var result error

	t.exec.Do(func() {
		n.loading = false

		if n.detached {
			return
		}

		if err != nil {
			result = err

			t.logFailure("refresh", n, err)
			t.notifier.NodeChanged(n)

			return
		}

		t.reconcile(n, items)
	})

	return true, result
}

// RefreshAll refreshes n and then, concurrently, every kept child that is
// expanded and settled, each recursing depth first. Failures of independent
// branches are joined.
func (t *Tree) RefreshAll(ctx context.Context, n *Node) error {
	started, err := t.refresh(ctx, n)
	if !started || err != nil {
		return err
	}

	var children []*Node

	t.exec.Do(func() {
		for _, child := range n.children {
			if child.settled() {
				children = append(children, child)
			}
		}
	})

	if len(children) == 0 {
		return nil
	}

	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)

	group.SetLimit(t.concurrency)

	for _, child := range children {
		group.Go(func() error {
			err := t.RefreshAll(ctx, child)
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

// Replace swaps the snapshot of n on the owner and notifies once. The new
// item must have the same key.
func (t *Tree) Replace(n *Node, item any) {
	t.exec.Do(func() {
		if n.detached || n.IsPlaceholder() || n.strategy.Key(item) != n.key {
			return
		}

		n.item = item

		t.notifier.NodeChanged(n)
	})
}

// Read runs fn on the owner.
func (t *Tree) Read(fn func()) {
	t.exec.Do(fn)
}

// Walk visits n and its descendants depth first, including hidden ones.
// Returning false from fn skips the children of that node.
func Walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}

	for _, child := range n.children {
		Walk(child, fn)
	}
}

// Row is a visible node with its indentation level.
type Row struct {
	Node  *Node
	Level int
}

// Visible lists the nodes a renderer shows below the root, in order.
func (t *Tree) Visible() []Row {
	var rows []Row

	var visit func(n *Node, level int)

	visit = func(n *Node, level int) {
		for _, child := range n.children {
			rows = append(rows, Row{Node: child, Level: level})

			if child.expanded {
				visit(child, level+1)
			}
		}
	}

	if t.root.expanded {
		visit(t.root, 0)
	}

	return rows
}

// Find returns the node reached from the root by following keys, or nil.
func (t *Tree) Find(keys ...string) *Node {
	n := t.root

	for _, key := range keys {
		var next *Node

		for _, child := range n.children {
			if !child.IsPlaceholder() && child.key == key {
				next = child

				break
			}
		}

		if next == nil {
			return nil
		}

		n = next
	}

	return n
}

func (t *Tree) logFailure(operation string, n *Node, err error) {
	t.logger.Warn("failed to fetch children", map[string]interface{}{
		"operation": operation,
		"kind":      n.Kind(),
		"key":       n.key,
		"error":     err.Error(),
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}
