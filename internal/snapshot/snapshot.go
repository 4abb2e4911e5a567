package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/world"
)

// ErrCorruptSnapshot marks a snapshot document that cannot be trusted
// as a replay starting point. No partial-state recovery is attempted.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Export serializes the full world state to a snapshot document tagged
// with the given watermark (the sequence number of the last journal
// record the state reflects). Node and attribute order is insertion
// order, so exporting the same state twice yields identical bytes.
// Export never mutates the world.
func Export(w *world.World, watermark int64) ([]byte, error) {
	if watermark < 0 {
		return nil, fmt.Errorf("export snapshot: negative watermark %d", watermark)
	}

	nodes, err := encodeNodes(w)
	if err != nil {
		return nil, fmt.Errorf("export snapshot: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"watermark":`)
	buf.WriteString(strconv.FormatInt(watermark, 10))
	buf.WriteString(`,"checksum":"`)
	buf.WriteString(Checksum(watermark, nodes))
	buf.WriteString(`","nodes":`)
	buf.Write(nodes)
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// encodeNodes serializes the node list in insertion order. Attribute
// values use canonical encoding, but key order within a node document
// is insertion order, not RFC 8785 order - the snapshot is a readable
// inventory, and insertion order is the reproducible choice here.
func encodeNodes(w *world.World) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, n := range w.Nodes() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"id":`)
		id, err := value.MarshalCanonical(value.String(n.ID))
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		buf.Write(id)
		buf.WriteString(`,"attributes":{`)
		for j, attr := range n.Attributes() {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := value.MarshalCanonical(value.String(attr))
			if err != nil {
				return nil, fmt.Errorf("node %q attr %q: %w", n.ID, attr, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			v, _ := n.Get(attr)
			enc, err := value.MarshalCanonical(v)
			if err != nil {
				return nil, fmt.Errorf("node %q attr %q: %w", n.ID, attr, err)
			}
			buf.Write(enc)
		}
		buf.WriteString("}}")
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// document mirrors the snapshot JSON shape for the first decoding pass.
// Watermark is a pointer so an absent field is distinguishable from 0.
type document struct {
	Watermark *int64         `json:"watermark"`
	Checksum  string         `json:"checksum"`
	Nodes     []nodeDocument `json:"nodes"`
}

type nodeDocument struct {
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// Import reconstructs a world and its watermark from a snapshot
// document. Fails with ErrCorruptSnapshot if required fields are
// absent, the watermark is negative, a value does not decode, or the
// checksum (when present) does not match the reconstructed state.
func Import(data []byte) (*world.World, int64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc.Watermark == nil {
		return nil, 0, fmt.Errorf("%w: missing watermark", ErrCorruptSnapshot)
	}
	if *doc.Watermark < 0 {
		return nil, 0, fmt.Errorf("%w: negative watermark %d", ErrCorruptSnapshot, *doc.Watermark)
	}
	if doc.Nodes == nil {
		return nil, 0, fmt.Errorf("%w: missing nodes", ErrCorruptSnapshot)
	}

	w := world.New()
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return nil, 0, fmt.Errorf("%w: node with empty id", ErrCorruptSnapshot)
		}
		if n.Attributes == nil {
			return nil, 0, fmt.Errorf("%w: node %q missing attributes", ErrCorruptSnapshot, n.ID)
		}
		if err := importAttributes(w, n.ID, n.Attributes); err != nil {
			return nil, 0, err
		}
	}

	if doc.Checksum != "" {
		nodes, err := encodeNodes(w)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		if got := Checksum(*doc.Watermark, nodes); got != doc.Checksum {
			return nil, 0, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
		}
	}

	return w, *doc.Watermark, nil
}

// importAttributes walks one node's attribute object with the token
// API so document order becomes world insertion order. A plain map
// decode would lose the order and make export-after-import unstable.
func importAttributes(w *world.World, nodeID string, raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: node %q attributes: %v", ErrCorruptSnapshot, nodeID, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: node %q attributes is not an object", ErrCorruptSnapshot, nodeID)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: node %q attributes: %v", ErrCorruptSnapshot, nodeID, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("%w: node %q attribute key is not a string", ErrCorruptSnapshot, nodeID)
		}

		var rawValue json.RawMessage
		if err := dec.Decode(&rawValue); err != nil {
			return fmt.Errorf("%w: node %q attribute %q: %v", ErrCorruptSnapshot, nodeID, key, err)
		}
		v, err := value.Decode(rawValue)
		if err != nil {
			return fmt.Errorf("%w: node %q attribute %q: %v", ErrCorruptSnapshot, nodeID, key, err)
		}
		w.Set(nodeID, key, v)
	}

	return nil
}
