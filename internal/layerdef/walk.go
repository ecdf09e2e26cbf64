package layerdef

// Walk visits nodes depth-first in pre-order. Returning false from fn skips
// the children of a group.
func Walk(nodes []Node, fn func(n Node) bool) {
	for _, n := range nodes {
		descend := fn(n)
		switch n := n.(type) {
		case *Group:
			if descend {
				Walk(n.Children, fn)
			}
		case *Leaf:
		}
	}
}

// Leaves returns every leaf in pre-order.
func Leaves(nodes []Node) []*Leaf {
	var out []*Leaf
	Walk(nodes, func(n Node) bool {
		if l, ok := n.(*Leaf); ok {
			out = append(out, l)
		}
		return true
	})
	return out
}

// Groups returns every group in pre-order.
func Groups(nodes []Node) []*Group {
	var out []*Group
	Walk(nodes, func(n Node) bool {
		if g, ok := n.(*Group); ok {
			out = append(out, g)
		}
		return true
	})
	return out
}

// Find returns the node with the given ID, or nil.
func Find(nodes []Node, id ID) Node {
	var found Node
	Walk(nodes, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.NodeID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}
