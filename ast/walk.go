package ast

// WalkStatus controls traversal from a walk callback.
type WalkStatus int

const (
	// GoToNext continues the walk normally.
	GoToNext WalkStatus = iota
	// SkipChildren continues without descending into the current node.
	SkipChildren
	// Terminate stops the walk immediately.
	Terminate
)

// Walker is called twice per container node (entering and leaving) and once
// per leaf (entering only).
type Walker func(n *Node, entering bool) WalkStatus

// Walk performs a depth-first traversal of the tree rooted at n.
func Walk(n *Node, fn Walker) WalkStatus {
	status := fn(n, true)
	if status == Terminate {
		return status
	}
	if status != SkipChildren {
		for c := n.firstChild; c != nil; {
			// Grab next before the callback, which may unlink c.
			next := c.next
			if Walk(c, fn) == Terminate {
				return Terminate
			}
			c = next
		}
	}
	if n.firstChild != nil {
		if fn(n, false) == Terminate {
			return Terminate
		}
	}
	return GoToNext
}

// Descendants returns n and all nodes below it in document order.
func Descendants(n *Node) []*Node {
	var out []*Node
	Walk(n, func(node *Node, entering bool) WalkStatus {
		if entering {
			out = append(out, node)
		}
		return GoToNext
	})
	return out
}
