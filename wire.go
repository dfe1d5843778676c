package termwire

import (
	"encoding/json"
	"fmt"
)

// TerminalData is one encoded frame: grid dimensions, cursor position,
// pagination metadata, and the requested window of lines. A frame is
// immutable once returned from Encode.
type TerminalData struct {
	Cols       int    `json:"cols"`
	Rows       int    `json:"rows"`
	Cursor     [2]int `json:"cursor"`
	Offset     int    `json:"offset"`
	TotalLines int    `json:"totalLines"`
	Lines      []Line `json:"lines"`
}

// WithHighlights returns a copy of the frame whose lines have the regions
// applied. The receiver is never modified. Region line numbers index into
// Lines directly, so they are window-relative when the frame was encoded
// with a non-zero offset.
func (t *TerminalData) WithHighlights(regions []HighlightRegion) *TerminalData {
	if t == nil {
		return nil
	}
	out := *t
	out.Lines = ApplyHighlights(t.Lines, regions)
	return &out
}

// Line is the ordered span sequence covering one row, left to right.
// Rows with no printable cells encode as an empty array.
type Line []Span

// Text returns the line's visible text, the concatenation of its span
// texts in column order. Gaps from null cells are already elided.
func (l Line) Text() string {
	if len(l) == 1 {
		return l[0].Text
	}

	n := 0
	for _, s := range l {
		n += len(s.Text)
	}

	buf := make([]byte, 0, n)
	for _, s := range l {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// Span is a maximal run of cells sharing one style. On the wire it is the
// 5-tuple ["text", fg, bg, flags, width]: fg and bg are "#rrggbb" strings
// or null for "no color" (empty string here), flags is the OR of the six
// attribute bits, and width is the display width of the text where wide
// characters count 2.
type Span struct {
	Text  string
	Fg    string
	Bg    string
	Flags CellFlags
	Width int
}

// MarshalJSON encodes the span as its wire 5-tuple.
func (s Span) MarshalJSON() ([]byte, error) {
	tuple := [5]any{s.Text, nil, nil, int(s.Flags.Style()), s.Width}
	if s.Fg != "" {
		tuple[1] = s.Fg
	}
	if s.Bg != "" {
		tuple[2] = s.Bg
	}
	return json.Marshal(tuple)
}

// UnmarshalJSON decodes the wire 5-tuple back into a span.
func (s *Span) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 5 {
		return fmt.Errorf("span: expected 5 elements, got %d", len(tuple))
	}

	if err := json.Unmarshal(tuple[0], &s.Text); err != nil {
		return fmt.Errorf("span text: %w", err)
	}

	var fg, bg *string
	if err := json.Unmarshal(tuple[1], &fg); err != nil {
		return fmt.Errorf("span fg: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &bg); err != nil {
		return fmt.Errorf("span bg: %w", err)
	}
	s.Fg, s.Bg = "", ""
	if fg != nil {
		s.Fg = *fg
	}
	if bg != nil {
		s.Bg = *bg
	}

	var flags int
	if err := json.Unmarshal(tuple[3], &flags); err != nil {
		return fmt.Errorf("span flags: %w", err)
	}
	s.Flags = CellFlags(flags)

	if err := json.Unmarshal(tuple[4], &s.Width); err != nil {
		return fmt.Errorf("span width: %w", err)
	}

	return nil
}
