package termwire

// CellFlags is a bitmask of cell text attributes. The low six bits are the
// attribute bits that appear in encoded output; the remaining bits are
// placement bookkeeping and never leave the grid.
type CellFlags uint16

const (
	FlagBold CellFlags = 1 << iota
	FlagItalic
	FlagUnderline
	FlagStrikethrough
	FlagInverse
	FlagFaint
	FlagWideLead
	FlagWideContinuation
)

// flagStyleMask selects the attribute bits that are part of the wire format.
const flagStyleMask = FlagBold | FlagItalic | FlagUnderline | FlagStrikethrough | FlagInverse | FlagFaint

// Style strips placement flags, leaving only the wire attribute bits.
func (f CellFlags) Style() CellFlags {
	return f & flagStyleMask
}

// ColorKind discriminates how a cell color is specified.
type ColorKind uint8

const (
	// ColorDefault is the terminal default foreground or background.
	ColorDefault ColorKind = iota
	// ColorIndexed references one of the 256 palette entries.
	ColorIndexed
	// ColorRGB is a direct 24-bit color.
	ColorRGB
)

// Color is a cell color value. The zero value means the terminal default,
// so colors compare correctly with ==.
type Color struct {
	Kind  ColorKind
	Index uint8
	R     uint8
	G     uint8
	B     uint8
}

// IndexedColor returns a reference to one of the 256 palette entries.
func IndexedColor(index uint8) Color {
	return Color{Kind: ColorIndexed, Index: index}
}

// RGBColor returns a direct 24-bit color.
func RGBColor(r, g, b uint8) Color {
	return Color{Kind: ColorRGB, R: r, G: g, B: b}
}

// IsDefault returns true if the color is the terminal default.
func (c Color) IsDefault() bool {
	return c.Kind == ColorDefault
}

// Cell stores the character, colors, and attributes for one grid position.
//
// The zero value is a null cell: nothing was ever written there. Wide
// characters occupy two columns; the first carries the rune and
// FlagWideLead, the second carries FlagWideContinuation and no rune.
type Cell struct {
	Char  rune
	Fg    Color
	Bg    Color
	Flags CellFlags
}

// BlankCell returns a written space cell carrying the given background.
func BlankCell(bg Color) Cell {
	return Cell{Char: ' ', Bg: bg}
}

// HasFlag returns true if the specified flag is set.
func (c Cell) HasFlag(flag CellFlags) bool {
	return c.Flags&flag != 0
}

// SetFlag enables the specified flag without affecting others.
func (c *Cell) SetFlag(flag CellFlags) {
	c.Flags |= flag
}

// ClearFlag disables the specified flag without affecting others.
func (c *Cell) ClearFlag(flag CellFlags) {
	c.Flags &^= flag
}

// IsNull returns true if no character has ever been written to the cell.
// Null cells produce no output and split the line into separate spans.
func (c Cell) IsNull() bool {
	return c.Char == 0 && !c.HasFlag(FlagWideContinuation)
}

// IsWideLead returns true if this cell holds a character that occupies
// two columns (CJK, many emoji).
func (c Cell) IsWideLead() bool {
	return c.HasFlag(FlagWideLead)
}

// IsWideContinuation returns true if this is the second column of a wide
// character. Continuation cells are skipped during encoding.
func (c Cell) IsWideContinuation() bool {
	return c.HasFlag(FlagWideContinuation)
}

// Width returns the number of columns the cell reports on the wire:
// 2 for a wide lead, 1 otherwise.
func (c Cell) Width() int {
	if c.HasFlag(FlagWideLead) {
		return 2
	}
	return 1
}
