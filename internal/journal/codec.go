package journal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// Malformed marks a line that could not be decoded. Replay skips and
// reports these instead of aborting, so one corrupted line never takes
// down an otherwise well-formed log.
type Malformed struct {
	Line   string // the raw line, for diagnostics
	Reason string
}

func (m *Malformed) String() string {
	return fmt.Sprintf("%s: %q", m.Reason, m.Line)
}

// EncodeLine serializes a record to its one-line wire form, without a
// trailing newline. Values are canonical JSON, which escapes embedded
// newlines and is self-delimiting, so line framing cannot be broken by
// value content.
func EncodeLine(r Record) (string, error) {
	switch r.Kind {
	case KindBeginFrame, KindEndFrame:
		if !ValidLabel(r.FrameLabel) {
			return "", fmt.Errorf("encode %s: invalid frame label %q", r.Kind, r.FrameLabel)
		}
		return string(r.Kind) + " " + r.FrameLabel, nil

	case KindSetAttribute:
		if !validNode.MatchString(r.Target.Node) || !validToken.MatchString(r.Target.Attribute) {
			return "", fmt.Errorf("encode SET: invalid target path %q", r.Target.String())
		}
		enc, err := value.MarshalCanonical(r.Value)
		if err != nil {
			return "", fmt.Errorf("encode SET %s: %w", r.Target.String(), err)
		}
		return "SET " + r.Target.String() + " " + string(enc), nil

	case KindMark:
		if !ValidLabel(r.Name) {
			return "", fmt.Errorf("encode MARK: invalid name %q", r.Name)
		}
		enc, err := value.MarshalCanonical(r.Payload)
		if err != nil {
			return "", fmt.Errorf("encode MARK %s: %w", r.Name, err)
		}
		return "MARK " + r.Name + " " + string(enc), nil

	case KindSegmentBase:
		if r.Base < 0 {
			return "", fmt.Errorf("encode LOG: negative base %d", r.Base)
		}
		return "LOG " + strconv.FormatInt(r.Base, 10), nil

	default:
		return "", fmt.Errorf("encode: unknown record kind %q", r.Kind)
	}
}

// DecodeLine parses one line into a Record. It never returns an error:
// malformed input yields a non-nil *Malformed so callers can
// skip-and-report. Seq is left zero; the reader assigns it.
func DecodeLine(line string) (Record, *Malformed) {
	keyword, rest, _ := strings.Cut(line, " ")

	switch Kind(keyword) {
	case KindBeginFrame, KindEndFrame:
		if !ValidLabel(rest) {
			return Record{}, &Malformed{Line: line, Reason: fmt.Sprintf("%s: invalid frame label", keyword)}
		}
		return Record{Kind: Kind(keyword), FrameLabel: rest}, nil

	case KindSetAttribute:
		rawPath, rawValue, found := strings.Cut(rest, " ")
		if !found {
			return Record{}, &Malformed{Line: line, Reason: "SET: missing value"}
		}
		path, err := ParsePath(rawPath)
		if err != nil {
			return Record{}, &Malformed{Line: line, Reason: "SET: " + err.Error()}
		}
		v, err := value.Decode([]byte(rawValue))
		if err != nil {
			return Record{}, &Malformed{Line: line, Reason: "SET: bad value: " + err.Error()}
		}
		return Record{Kind: KindSetAttribute, Target: path, Value: v}, nil

	case KindMark:
		name, rawPayload, found := strings.Cut(rest, " ")
		if !found {
			return Record{}, &Malformed{Line: line, Reason: "MARK: missing payload"}
		}
		if !ValidLabel(name) {
			return Record{}, &Malformed{Line: line, Reason: "MARK: invalid name"}
		}
		p, err := value.Decode([]byte(rawPayload))
		if err != nil {
			return Record{}, &Malformed{Line: line, Reason: "MARK: bad payload: " + err.Error()}
		}
		return Record{Kind: KindMark, Name: name, Payload: p}, nil

	case KindSegmentBase:
		base, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || base < 0 {
			return Record{}, &Malformed{Line: line, Reason: "LOG: bad base sequence"}
		}
		return Record{Kind: KindSegmentBase, Base: base}, nil

	default:
		return Record{}, &Malformed{Line: line, Reason: fmt.Sprintf("unknown record kind %q", keyword)}
	}
}
