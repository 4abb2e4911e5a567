package provenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// Filter narrows a mark query. Zero fields are not constrained.
type Filter struct {
	// Name matches the mark name exactly.
	Name string

	// Frame matches the frame label exactly.
	Frame string

	// SinceSeq keeps marks with seq > SinceSeq.
	SinceSeq int64

	// UntilSeq keeps marks with seq <= UntilSeq (0 = unbounded).
	UntilSeq int64
}

// Query returns marks matching the filter in sequence order.
//
// The SQL is assembled from the filter with parameterized values only,
// and always carries ORDER BY seq ASC so results are deterministic.
func (x *Index) Query(ctx context.Context, f Filter) ([]Mark, error) {
	query, params := compileFilter(f)

	rows, err := x.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query marks: %w", err)
	}
	defer rows.Close()

	var out []Mark
	for rows.Next() {
		var (
			m       Mark
			payload string
		)
		if err := rows.Scan(&m.Seq, &m.FrameLabel, &m.Name, &payload); err != nil {
			return nil, fmt.Errorf("query marks: %w", err)
		}
		v, err := value.Decode([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("query marks: seq %d payload: %w", m.Seq, err)
		}
		m.Payload = v
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query marks: %w", err)
	}
	return out, nil
}

// compileFilter builds the parameterized SQL for a filter.
func compileFilter(f Filter) (string, []any) {
	var (
		where  []string
		params []any
	)

	if f.Name != "" {
		where = append(where, "name = ?")
		params = append(params, f.Name)
	}
	if f.Frame != "" {
		where = append(where, "frame_label = ?")
		params = append(params, f.Frame)
	}
	if f.SinceSeq > 0 {
		where = append(where, "seq > ?")
		params = append(params, f.SinceSeq)
	}
	if f.UntilSeq > 0 {
		where = append(where, "seq <= ?")
		params = append(params, f.UntilSeq)
	}

	query := "SELECT seq, frame_label, name, payload FROM marks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	return query, params
}
