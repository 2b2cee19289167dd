package jarir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// ParseSpans decodes a .spans document: a JSON array of
// [start, end, types, extra?] tuples. types is a single id or an array of
// ids; extra is a string, a number or null. A leading byte order mark is
// ignored.
func ParseSpans(data []byte) ([]Span, error) {
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, nil
	}

	var tuples []json.RawMessage
	if err := json.Unmarshal(data, &tuples); err != nil {
		return nil, fmt.Errorf("jarir: parse spans: %w: %w", ErrSpan, err)
	}

	spans := make([]Span, 0, len(tuples))
	for i, raw := range tuples {
		s, err := parseSpanTuple(raw)
		if err != nil {
			return nil, fmt.Errorf("jarir: span %d: %w", i, err)
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func parseSpanTuple(raw json.RawMessage) (Span, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Span{}, fmt.Errorf("not an array: %w: %w", ErrSpan, err)
	}
	if len(fields) < 3 || len(fields) > 4 {
		return Span{}, fmt.Errorf("want 3 or 4 elements, got %d: %w", len(fields), ErrSpan)
	}

	var s Span
	var err error
	if s.Start, err = parseOffset(fields[0]); err != nil {
		return Span{}, fmt.Errorf("start: %w", err)
	}
	if s.End, err = parseOffset(fields[1]); err != nil {
		return Span{}, fmt.Errorf("end: %w", err)
	}
	if s.Types, err = parseTypeIDs(fields[2]); err != nil {
		return Span{}, fmt.Errorf("types: %w", err)
	}
	if len(fields) == 4 {
		if s.Extra, s.HasExtra, err = parseExtra(fields[3]); err != nil {
			return Span{}, fmt.Errorf("extra: %w", err)
		}
	}
	return s, nil
}

func parseOffset(raw json.RawMessage) (int, error) {
	if isJSONNull(raw) {
		return 0, fmt.Errorf("missing offset: %w", ErrSpan)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%s is not an integer: %w", raw, ErrSpan)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative offset %d: %w", n, ErrSpan)
	}
	return n, nil
}

func parseTypeIDs(raw json.RawMessage) ([]int, error) {
	if isJSONNull(raw) {
		return nil, fmt.Errorf("missing type ids: %w", ErrSpan)
	}
	var one int
	if err := json.Unmarshal(raw, &one); err == nil {
		return []int{one}, nil
	}
	var many []int
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("%s is neither an id nor a list of ids: %w", raw, ErrSpan)
	}
	if len(many) == 0 {
		return nil, fmt.Errorf("empty type list: %w", ErrSpan)
	}
	return many, nil
}

func parseExtra(raw json.RawMessage) (string, bool, error) {
	if isJSONNull(raw) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true, nil
	}
	return "", false, fmt.Errorf("unsupported payload %s: %w", raw, ErrSpan)
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// spanRange keys spans by their offsets.
type spanRange struct{ start, end int }

// MergeSpans groups spans with identical offsets into one span carrying the
// sorted union of their type ids and the last non-null payload, so an
// explicit "" replaces an earlier payload. The result
// is ordered by ascending start, then descending end.
func MergeSpans(spans []Span) []Span {
	index := make(map[spanRange]int, len(spans))
	merged := make([]Span, 0, len(spans))

	for _, s := range spans {
		k := spanRange{s.Start, s.End}
		i, ok := index[k]
		if !ok {
			index[k] = len(merged)
			merged = append(merged, Span{Start: s.Start, End: s.End})
			i = len(merged) - 1
		}
		m := &merged[i]
		m.Types = append(m.Types, s.Types...)
		if s.HasExtra {
			m.Extra, m.HasExtra = s.Extra, true
		}
	}

	for i := range merged {
		slices.Sort(merged[i].Types)
		merged[i].Types = slices.Compact(merged[i].Types)
	}

	slices.SortStableFunc(merged, compareSpans)
	return merged
}

// compareSpans orders by ascending start, then descending end, so outer
// spans precede the spans they contain.
func compareSpans(a, b Span) int {
	if a.Start != b.Start {
		return a.Start - b.Start
	}
	return b.End - a.End
}
