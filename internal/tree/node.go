package tree

// Placeholder tells synthetic children apart from resource-backed ones.
type Placeholder int

const (
	// NotPlaceholder marks resource-backed nodes.
	NotPlaceholder Placeholder = iota
	// PlaceholderLoading stands in for children that were never fetched.
	PlaceholderLoading
	// PlaceholderEmpty stands in for a fetch that returned no children.
	PlaceholderEmpty
)

// LoadingLabel is the label of loading placeholders.
const LoadingLabel = "Loading..."

// Node is one entry of the tree. Its identity and view flags survive
// refreshes; only the wrapped item is replaced. Node state is owned by the
// tree's Executor: read it on the owner or after the operations touching it
// returned.
type Node struct {
	parent      *Node
	strategy    Strategy
	item        any
	key         string
	placeholder Placeholder
	label       string
	children    []*Node
	expanded    bool
	loading     bool
	detached    bool
}

func newNode(parent *Node, strategy Strategy, item any) *Node {
	n := &Node{
		parent:   parent,
		strategy: strategy,
		item:     item,
		key:      strategy.Key(item),
	}

	if !strategy.Leaf() {
		n.children = []*Node{newPlaceholder(n, PlaceholderLoading, LoadingLabel)}
	}

	return n
}

func newPlaceholder(parent *Node, kind Placeholder, label string) *Node {
	return &Node{
		parent:      parent,
		placeholder: kind,
		label:       label,
	}
}

// Key returns the stable identity of the node among its siblings.
func (n *Node) Key() string {
	return n.key
}

// Item returns the current resource snapshot. Nil for placeholders.
func (n *Node) Item() any {
	return n.item
}

// Label returns the display text.
func (n *Node) Label() string {
	if n.placeholder != NotPlaceholder {
		return n.label
	}

	return n.strategy.Label(n.item)
}

// Kind returns the strategy kind, or "placeholder".
func (n *Node) Kind() string {
	if n.placeholder != NotPlaceholder {
		return "placeholder"
	}

	return n.strategy.Kind()
}

// Strategy returns the strategy of the node. Nil for placeholders.
func (n *Node) Strategy() Strategy {
	return n.strategy
}

// Parent returns the parent node. Nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)

	return out
}

// Expanded reports whether the children are shown.
func (n *Node) Expanded() bool {
	return n.expanded
}

// Loading reports whether a fetch is in flight.
func (n *Node) Loading() bool {
	return n.loading
}

// Leaf reports whether the node never has children.
func (n *Node) Leaf() bool {
	return n.placeholder != NotPlaceholder || n.strategy.Leaf()
}

// Placeholder returns the placeholder kind.
func (n *Node) Placeholder() Placeholder {
	return n.placeholder
}

// IsPlaceholder reports whether the node is synthetic.
func (n *Node) IsPlaceholder() bool {
	return n.placeholder != NotPlaceholder
}

// HasEmptyPlaceholder reports whether the last fetch returned no children.
func (n *Node) HasEmptyPlaceholder() bool {
	return len(n.children) == 1 && n.children[0].placeholder == PlaceholderEmpty
}

// Attached reports whether the node is still part of its tree.
func (n *Node) Attached() bool {
	return !n.detached
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	depth := 0
	for p := n.parent; p != nil; p = p.parent {
		depth++
	}

	return depth
}

// Path returns the keys from the root's child down to n.
func (n *Node) Path() []string {
	var path []string
	for p := n; p != nil && p.parent != nil; p = p.parent {
		path = append([]string{p.key}, path...)
	}

	return path
}

// settled reports whether the node can be refreshed.
func (n *Node) settled() bool {
	return n.expanded && !n.loading && !n.detached && !n.Leaf()
}

func (n *Node) detach() {
	n.detached = true
	for _, child := range n.children {
		child.detach()
	}
}
