package journal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// Kind identifies the type of a journal record. The constant values are
// the literal keywords used on the wire.
type Kind string

const (
	// KindBeginFrame opens a named frame.
	KindBeginFrame Kind = "BEGIN"

	// KindSetAttribute sets one node attribute to a value.
	KindSetAttribute Kind = "SET"

	// KindMark records an out-of-band provenance note. Never applied
	// to world state.
	KindMark Kind = "MARK"

	// KindEndFrame closes the open frame, committing it.
	KindEndFrame Kind = "END"

	// KindSegmentBase is the optional first line of a log segment,
	// carrying the sequence number the segment continues from. Written
	// by rotation so sequence numbers survive segment replacement.
	KindSegmentBase Kind = "LOG"
)

// Record is one durable unit written to the log.
//
// Which fields are populated depends on Kind:
//   - BeginFrame/EndFrame: FrameLabel
//   - SetAttribute: Target, Value
//   - Mark: Name, Payload
//   - SegmentBase: Base
//
// Seq is assigned by the log writer at append time and reconstructed by
// the reader from line position; it is never encoded on the line.
type Record struct {
	Kind       Kind
	FrameLabel string
	Target     Path
	Name       string
	Value      value.Value
	Payload    value.Value
	Base       int64
	Seq        int64
}

// Path addresses one attribute of one node in the world.
type Path struct {
	Node      string
	Attribute string
}

// String returns the wire form of the path.
func (p Path) String() string {
	return p.Node + "." + p.Attribute
}

// validNode matches node identifiers. Dots are excluded because the
// first dot in a path separates node from attribute.
var validNode = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_:-]*$`)

// validToken matches frame labels, mark names, and attribute names.
// No whitespace or control characters, so a line always splits cleanly
// on spaces.
var validToken = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.:/-]*$`)

// ParsePath splits "<nodeId>.<attribute>" at the first dot. The
// attribute part may itself contain dots ("position.x").
func ParsePath(s string) (Path, error) {
	node, attr, found := strings.Cut(s, ".")
	if !found {
		return Path{}, fmt.Errorf("path %q: missing '.' separator", s)
	}
	if !validNode.MatchString(node) {
		return Path{}, fmt.Errorf("path %q: invalid node id %q", s, node)
	}
	if !validToken.MatchString(attr) {
		return Path{}, fmt.Errorf("path %q: invalid attribute %q", s, attr)
	}
	return Path{Node: node, Attribute: attr}, nil
}

// ValidLabel reports whether s is usable as a frame label or mark name.
func ValidLabel(s string) bool {
	return validToken.MatchString(s)
}
