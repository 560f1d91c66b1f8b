package doctree

// Outline is the root of a parsed chapter outline.
type Outline struct {
	Title string  `json:"title" yaml:"title"`
	Items []*Node `json:"items" yaml:"sections"`
}

// Node is one heading in the outline. QueryHint, when set, is asked
// instead of the heading itself.
type Node struct {
	Heading   string  `json:"heading" yaml:"heading"`
	Level     int     `json:"level" yaml:"level"`
	QueryHint string  `json:"query_hint,omitempty" yaml:"query_hint,omitempty"`
	Children  []*Node `json:"children,omitempty" yaml:"subsections,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// All returns n followed by every descendant in tree order.
func (n *Node) All() []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		out = append(out, x)
		return true
	})
	return out
}

// Walk visits every item of the outline depth first.
func (o *Outline) Walk(fn func(*Node) bool) {
	for _, n := range o.Items {
		n.Walk(fn)
	}
}

// All flattens the outline in tree order.
func (o *Outline) All() []*Node {
	var out []*Node
	for _, n := range o.Items {
		out = append(out, n.All()...)
	}
	return out
}

// Len counts every node in the outline.
func (o *Outline) Len() int { return len(o.All()) }
