package termwire

import (
	"errors"
	"image/color"
	"unicode/utf8"
)

var (
	// ErrNilSource is returned by Encode when the source is nil.
	ErrNilSource = errors.New("termwire: nil source")

	// ErrCapacityExceeded is returned when the encoded result would exceed
	// the configured maximum size. The call fails as a whole; no partial
	// result is ever returned.
	ErrCapacityExceeded = errors.New("termwire: result exceeds configured capacity")
)

// Encoder converts grid snapshots into paginated TerminalData frames.
// An Encoder is immutable after construction and safe for concurrent use:
// every Encode call allocates its own result.
type Encoder struct {
	palette        *[256]color.RGBA
	defaultBg      color.RGBA
	maxLineBytes   int
	maxResultBytes int
}

// EncoderOption configures an Encoder during construction.
type EncoderOption func(*Encoder)

// WithPalette sets the 256-entry lookup table used to resolve indexed colors.
func WithPalette(palette *[256]color.RGBA) EncoderOption {
	return func(e *Encoder) {
		if palette != nil {
			e.palette = palette
		}
	}
}

// WithDefaultBackground sets the background treated as transparent: cells
// whose background resolves to this color are encoded with no background,
// so they show the renderer's own backdrop. Alpha is ignored.
func WithDefaultBackground(bg color.RGBA) EncoderOption {
	return func(e *Encoder) {
		bg.A = 255
		e.defaultBg = bg
	}
}

// WithMaxLineBytes caps the encoded text bytes of a single row. Once a
// row reaches the cap, the rest of that row is silently dropped; earlier
// spans are kept. Zero means rows grow without bound.
func WithMaxLineBytes(n int) EncoderOption {
	return func(e *Encoder) {
		e.maxLineBytes = n
	}
}

// WithMaxResultBytes caps the total encoded text bytes of one Encode call.
// Exceeding the cap fails the whole call with ErrCapacityExceeded.
// Zero means no cap.
func WithMaxResultBytes(n int) EncoderOption {
	return func(e *Encoder) {
		e.maxResultBytes = n
	}
}

// NewEncoder creates an encoder with the given options.
// Defaults: DefaultPalette, DefaultBackground treated as transparent, and
// no size caps.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		palette:   &DefaultPalette,
		defaultBg: DefaultBackground,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

var defaultEncoder = NewEncoder()

// Encode captures a paginated snapshot of src using a default Encoder.
func Encode(src Source, offset, limit int) (*TerminalData, error) {
	return defaultEncoder.Encode(src, offset, limit)
}

// Encode captures a paginated snapshot of src. offset is the first row to
// include and limit caps the number of emitted rows; limit <= 0 emits all
// remaining rows. TotalLines always reflects the full grid height, so a
// caller paging past the end receives empty Lines with intact metadata
// rather than an error.
func (e *Encoder) Encode(src Source, offset, limit int) (*TerminalData, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	cols, rows := src.Size()
	x, y := src.Cursor()

	if offset < 0 {
		offset = 0
	}

	data := &TerminalData{
		Cols:       cols,
		Rows:       rows,
		Cursor:     [2]int{x, y},
		Offset:     offset,
		TotalLines: rows,
		Lines:      []Line{},
	}

	budget := byteBudget{limit: e.maxResultBytes}

	for row := offset; row < rows; row++ {
		if limit > 0 && len(data.Lines) >= limit {
			break
		}

		line, err := e.encodeRow(src, row, cols, &budget)
		if err != nil {
			return nil, err
		}
		data.Lines = append(data.Lines, line)
	}

	return data, nil
}

// spanStyle is a cell's resolved wire style: hex color strings with ""
// standing for "no color", plus the attribute bits. Values compare with ==
// to detect run boundaries.
type spanStyle struct {
	fg    string
	bg    string
	flags CellFlags
}

// cellStyle resolves a cell's colors against the palette and normalizes a
// background equal to the configured default down to "no background".
func (e *Encoder) cellStyle(cell Cell) spanStyle {
	st := spanStyle{flags: cell.Flags.Style()}

	if rgba, ok := resolveColor(cell.Fg, e.palette); ok {
		st.fg = hexColor(rgba)
	}
	if rgba, ok := resolveColor(cell.Bg, e.palette); ok && rgba != e.defaultBg {
		st.bg = hexColor(rgba)
	}

	return st
}

// encodeRow merges one row into maximal same-style spans. Wide
// continuation cells extend the pending run without contributing text;
// null cells flush it and leave a gap.
func (e *Encoder) encodeRow(src Source, row, cols int, budget *byteBudget) (Line, error) {
	line := Line{}

	var (
		text     []byte
		width    int
		style    spanStyle
		pending  bool
		rowBytes int
	)

	flush := func() {
		if pending && len(text) > 0 {
			line = append(line, Span{
				Text:  string(text),
				Fg:    style.fg,
				Bg:    style.bg,
				Flags: style.flags,
				Width: width,
			})
		}
		text = text[:0]
		width = 0
		pending = false
	}

	for col := 0; col < cols; col++ {
		cell := src.Cell(row, col)

		if cell.IsWideContinuation() {
			continue
		}
		if cell.IsNull() {
			flush()
			continue
		}

		st := e.cellStyle(cell)
		if !pending || st != style {
			flush()
			style = st
			pending = true
		}

		n := utf8.RuneLen(cell.Char)
		if n < 0 {
			n = utf8.RuneLen(utf8.RuneError)
		}

		if e.maxLineBytes > 0 && rowBytes+n > e.maxLineBytes {
			// Row text cap reached: drop the remainder of this row.
			break
		}
		if err := budget.take(n); err != nil {
			return nil, err
		}

		text = utf8.AppendRune(text, cell.Char)
		width += cell.Width()
		rowBytes += n
	}

	flush()
	return line, nil
}

// byteBudget tracks the total text bytes one Encode call may produce.
type byteBudget struct {
	limit int
	used  int
}

func (b *byteBudget) take(n int) error {
	if b.limit <= 0 {
		return nil
	}
	b.used += n
	if b.used > b.limit {
		return ErrCapacityExceeded
	}
	return nil
}
