package behaviorcap

import (
	"strconv"
	"strings"
)

// ElementFrame describes one element along the path from the document
// root down to the interacted element. The host environment computes
// these directly from the DOM; this package only encodes them into a
// CSS-path string.
type ElementFrame struct {
	Tag string
	ID  string
	// Classes are the element's class list, in DOM order.
	Classes []string
	// SameTagSiblingCount is the number of this element's siblings
	// (including itself) sharing its tag name.
	SameTagSiblingCount int
	// NthChild is this element's 1-based position among same-tag
	// siblings, used only when SameTagSiblingCount > 1.
	NthChild int
}

// EncodeTargetPath builds a root-to-leaf CSS path from frames (ordered
// root-first, leaf-last). Ascent stops at the first frame with an id,
// walking from the leaf upward — an id is assumed unique enough to
// anchor the path without needing any ancestor above it.
func EncodeTargetPath(frames []ElementFrame) string {
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
		parts = append(parts, encodeFrame(frames[i]))
	}
	return strings.Join(parts, " > ")
}

func encodeFrame(f ElementFrame) string {
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
