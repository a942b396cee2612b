// signal.go — Shapes forwarded by the host environment for replay deltas.
package replay

// MutationSignal mirrors one DOM mutation record: a childList, attribute,
// or characterData change observed on the whole document with subtree: true.
type MutationSignal struct {
	Target        []NodeFrame
	Added         []SourceNode
	Removed       []SourceNode
	AttributeName string
	OldValue      string
}

// IntersectionSignal mirrors one intersection-observer callback entry
// for an <img> or <video> element present when recording started.
type IntersectionSignal struct {
	Target         []NodeFrame
	IsIntersecting bool
}
