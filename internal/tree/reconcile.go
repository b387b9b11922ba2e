package tree

// reconcile merges the fresh children items of n into its child list. Callers
// hold the owner and n is expanded and no longer loading.
//
// Children are matched by key. Kept nodes keep their identity and flags and
// get the fresh item; new keys become collapsed nodes; missing keys are
// detached. The result follows the order of items and is a single empty
// placeholder when items is empty. The notifier fires once.
func (t *Tree) reconcile(n *Node, items []any) {
	strategy := n.strategy.Children()

	current := make(map[string]*Node, len(n.children))

	for _, child := range n.children {
		if !child.IsPlaceholder() {
			current[child.key] = child
		}
	}

	next := make([]*Node, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		key := strategy.Key(item)

		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		if kept, ok := current[key]; ok {
			kept.item = item
			next = append(next, kept)

			delete(current, key)

			continue
		}

		next = append(next, newNode(n, strategy, item))
	}

	for _, removed := range current {
		removed.detach()
	}

	if len(next) == 0 {
		next = []*Node{newPlaceholder(n, PlaceholderEmpty, n.strategy.EmptyLabel())}
	}

	n.children = next

	t.notifier.NodeChanged(n)
}
