package content

import "github.com/godicom/srreport/pkg/code"

// MatchesConcept reports whether the node's concept name equals primary or
// any of the supplied legacy codes. A node without a concept name never
// matches; that is not an error.
func (n *Node) MatchesConcept(primary code.Code, legacy ...code.Code) bool {
	if n == nil || n.Concept == nil {
		return false
	}
	return code.Match(*n.Concept, primary, legacy...)
}

// MatchesMeaning reports whether the node's concept meaning text equals
// meaning. Some producers populate only the meaning on tracking items,
// so a few lookups key on it; keep those behind this helper so a
// stable-code lookup can replace them without touching callers.
func (n *Node) MatchesMeaning(meaning string) bool {
	if n == nil || n.Concept == nil {
		return false
	}
	return n.Concept.Meaning == meaning
}

// FindByConcept returns the first child whose concept matches, or nil.
// Siblings are scanned in document order.
func (n *Node) FindByConcept(primary code.Code, legacy ...code.Code) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.MatchesConcept(primary, legacy...) {
			return c
		}
	}
	return nil
}

// FindAllByConcept returns every child whose concept matches, in document
// order.
func (n *Node) FindAllByConcept(primary code.Code, legacy ...code.Code) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.MatchesConcept(primary, legacy...) {
			out = append(out, c)
		}
	}
	return out
}

// FindByMeaning returns the first child whose concept meaning equals
// meaning, or nil.
func (n *Node) FindByMeaning(meaning string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.MatchesMeaning(meaning) {
			return c
		}
	}
	return nil
}

// FindByType returns the first child of the given value type, or nil.
func (n *Node) FindByType(t ValueType) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Type == t {
			return c
		}
	}
	return nil
}

// FindAllByType returns every child of the given value type, in document
// order.
func (n *Node) FindAllByType(t ValueType) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
