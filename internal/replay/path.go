// path.go — Node-path construction for replay deltas.
//
// Mutation and interaction records key their target to a node a CSS-path
// string, built with the same rule as behavior capture's target encoding
// (tag/#id stops ascent, .class joined by dots, :nth-child(k) when
// same-tag siblings exceed one) so a replay viewer can correlate a
// mutation's target with a behavior event's target using one algorithm.
package replay

import (
	"strconv"
	"strings"
)

// NodeFrame describes one element along the path from the document root
// down to a mutated or interacted-with node.
type NodeFrame struct {
	Tag                 string
	ID                  string
	Classes             []string
	SameTagSiblingCount int
	NthChild            int
}

// EncodePath builds a root-to-leaf CSS path from frames (root-first,
// leaf-last). Ascent stops at the first frame (from the leaf upward)
// that carries an id.
func EncodePath(frames []NodeFrame) string {
	if len(frames) == 0 {
		return ""
	}

	start := 0
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].ID != "" {
			start = i
			break
		}
	}

	parts := make([]string, 0, len(frames)-start)
	for i := start; i < len(frames); i++ {
		parts = append(parts, encodeNodeFrame(frames[i]))
	}
	return strings.Join(parts, " > ")
}

func encodeNodeFrame(f NodeFrame) string {
	var b strings.Builder
	b.WriteString(f.Tag)

	switch {
	case f.ID != "":
		b.WriteString("#")
		b.WriteString(f.ID)
	case len(f.Classes) > 0:
		b.WriteString(".")
		b.WriteString(strings.Join(f.Classes, "."))
	}

	if f.SameTagSiblingCount > 1 {
		b.WriteString(":nth-child(")
		b.WriteString(strconv.Itoa(f.NthChild))
		b.WriteString(")")
	}

	return b.String()
}
