package tree

import (
	"context"
	"errors"
	"fmt"
)

// Static errors for err113 compliance.
var (
	ErrUnexpectedItem = errors.New("item does not belong to this level")
)

// Strategy describes one kind of node: how its items are keyed and labelled
// and how their children are fetched.
type Strategy interface {
	// Kind names the resource kind, e.g. "organization".
	Kind() string
	// Key returns the stable identity of item among its siblings.
	Key(item any) string
	// Label returns the display text of item.
	Label(item any) string
	// Leaf reports whether items of this kind never have children.
	Leaf() bool
	// EmptyLabel is shown in place of children when a fetch returns none.
	EmptyLabel() string
	// FetchChildren lists the children of item in server order. It runs off
	// the owner and may block.
	FetchChildren(ctx context.Context, item any) ([]any, error)
	// Children describes the children's kind. Nil for leaves.
	Children() Strategy
}

// Level is a Strategy over items of type T.
type Level[T any] struct {
	Name    string
	KeyOf   func(T) string
	LabelOf func(T) string
	Empty   string
	Fetch   func(ctx context.Context, item T) ([]any, error)
	Next    Strategy
}

var _ Strategy = (*Level[struct{}])(nil)

// Kind implements Strategy.
func (l *Level[T]) Kind() string {
	return l.Name
}

// Key implements Strategy. Items of another type have an empty key.
func (l *Level[T]) Key(item any) string {
	value, ok := item.(T)
	if !ok {
		return ""
	}

	return l.KeyOf(value)
}

// Label implements Strategy. The key is used when LabelOf is nil.
func (l *Level[T]) Label(item any) string {
	value, ok := item.(T)
	if !ok {
		return ""
	}

	if l.LabelOf == nil {
		return l.KeyOf(value)
	}

	return l.LabelOf(value)
}

// Leaf implements Strategy.
func (l *Level[T]) Leaf() bool {
	return l.Fetch == nil || l.Next == nil
}

// EmptyLabel implements Strategy.
func (l *Level[T]) EmptyLabel() string {
	if l.Empty == "" {
		return "[Empty]"
	}

	return l.Empty
}

// FetchChildren implements Strategy.
func (l *Level[T]) FetchChildren(ctx context.Context, item any) ([]any, error) {
	value, ok := item.(T)
	if !ok {
		return nil, fmt.Errorf("%w: %s got %T", ErrUnexpectedItem, l.Name, item)
	}

	if l.Leaf() {
		return nil, nil
	}

	return l.Fetch(ctx, value)
}

// Children implements Strategy.
func (l *Level[T]) Children() Strategy {
	return l.Next
}

// Items converts a typed slice for FetchChildren.
func Items[T any](items []T) []any {
	out := make([]any, len(items))
	for i := range items {
		out[i] = items[i]
	}

	return out
}
