package termwire

import (
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// DEFAULT_ROWS is the default number of grid rows.
	DEFAULT_ROWS = 24
	// DEFAULT_COLS is the default number of grid columns.
	DEFAULT_COLS = 80
)

// Source is the grid snapshot contract the encoder reads from. It is
// usually implemented by a terminal-emulation engine; Grid is a built-in
// implementation for feeding program output directly.
type Source interface {
	// Size returns the grid dimensions in columns and rows.
	Size() (cols, rows int)
	// Cursor returns the cursor position as (x, y), zero-based.
	Cursor() (x, y int)
	// Cell returns the cell at (row, col). Out-of-range coordinates and
	// positions nothing was ever written to yield the zero Cell.
	Cell(row, col int) Cell
}

// Position identifies a cell location in the grid (0-based).
type Position struct {
	Row int
	Col int
}

// parser states for the escape-sequence feed.
type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateCSI
	stateOSC
	stateDCS
	stateCharset
)

// Grid is a fixed-size cell matrix that accepts raw terminal output via
// io.Writer and tracks enough state to style cells: UTF-8 text, C0
// controls, SGR attributes, cursor addressing, and erase sequences.
// Everything else (modes, scroll regions, alternate screens, device
// queries) is consumed and ignored; programs that need full VT semantics
// should implement Source on top of a real emulator instead.
//
// Grid is safe for concurrent use. Write and the Source accessors take an
// internal lock, so a reader paired with a live writer sees a consistent
// cell per call but may observe a frame mid-update.
type Grid struct {
	mu sync.RWMutex

	cols  int
	rows  int
	cells []Cell

	cursorX int
	cursorY int

	// Current SGR state applied to newly written cells.
	fg    Color
	bg    Color
	flags CellFlags

	savedX, savedY     int
	savedFg, savedBg   Color
	savedFlags         CellFlags

	state      parseState
	params     []int
	paramBuf   strings.Builder
	csiPrivate bool

	utf8Buf [4]byte
	utf8Len int
	utf8Pos int
}

var _ Source = (*Grid)(nil)

// NewGrid creates a grid with the given dimensions.
// Values <= 0 are replaced with defaults (80x24).
func NewGrid(cols, rows int) *Grid {
	if cols <= 0 {
		cols = DEFAULT_COLS
	}
	if rows <= 0 {
		rows = DEFAULT_ROWS
	}

	return &Grid{
		cols:   cols,
		rows:   rows,
		cells:  make([]Cell, cols*rows),
		params: make([]int, 0, 16),
	}
}

// Size returns the grid dimensions in columns and rows.
func (g *Grid) Size() (cols, rows int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cols, g.rows
}

// Cursor returns the cursor position as (x, y), zero-based.
func (g *Grid) Cursor() (x, y int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursorX, g.cursorY
}

// Cell returns the cell at (row, col), or the zero Cell if out of range.
func (g *Grid) Cell(row, col int) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return Cell{}
	}
	return g.cells[row*g.cols+col]
}

// SetCell writes a cell directly, bypassing the escape parser.
// Does nothing if coordinates are out of bounds.
func (g *Grid) SetCell(row, col int, cell Cell) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.put(row, col, cell)
}

// SetCursor moves the cursor, clamping to the grid bounds.
func (g *Grid) SetCursor(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorX = clamp(x, 0, g.cols-1)
	g.cursorY = clamp(y, 0, g.rows-1)
}

// Write feeds raw terminal output through the escape parser.
// Implements io.Writer; always returns len(p) with a nil error.
func (g *Grid) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, b := range p {
		g.parseByte(b)
	}
	return len(p), nil
}

// WriteString is a convenience method that converts the string to bytes and calls Write.
func (g *Grid) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

// Reset clears all cells, moves the cursor home, and drops SGR state.
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

func (g *Grid) reset() {
	for i := range g.cells {
		g.cells[i] = Cell{}
	}
	g.cursorX, g.cursorY = 0, 0
	g.fg, g.bg, g.flags = Color{}, Color{}, 0
	g.state = stateGround
}

// Resize changes the grid dimensions, preserving cells at the top-left.
// The cursor is clamped to the new bounds. Invalid dimensions are ignored.
func (g *Grid) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cells := make([]Cell, cols*rows)
	for row := 0; row < rows && row < g.rows; row++ {
		for col := 0; col < cols && col < g.cols; col++ {
			cells[row*cols+col] = g.cells[row*g.cols+col]
		}
	}

	g.cells = cells
	g.cols = cols
	g.rows = rows
	g.cursorX = clamp(g.cursorX, 0, cols-1)
	g.cursorY = clamp(g.cursorY, 0, rows-1)
}

// LineContent returns the text content of a row, trimming trailing blanks.
// Wide continuation cells are skipped; interior null cells read as spaces.
func (g *Grid) LineContent(row int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lineContent(row)
}

func (g *Grid) lineContent(row int) string {
	if row < 0 || row >= g.rows {
		return ""
	}

	line := g.cells[row*g.cols : (row+1)*g.cols]

	lastNonBlank := -1
	for col := g.cols - 1; col >= 0; col-- {
		c := line[col]
		if c.Char != ' ' && c.Char != 0 && !c.IsWideContinuation() {
			lastNonBlank = col
			break
		}
	}
	if lastNonBlank < 0 {
		return ""
	}

	runes := make([]rune, 0, lastNonBlank+1)
	for _, c := range line[:lastNonBlank+1] {
		if c.IsWideContinuation() {
			continue
		}
		if c.Char == 0 {
			runes = append(runes, ' ')
		} else {
			runes = append(runes, c.Char)
		}
	}
	return string(runes)
}

// String returns the visible content as a newline-separated string with
// trailing empty lines omitted. Implements fmt.Stringer.
func (g *Grid) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	lines := make([]string, g.rows)
	lastNonEmpty := -1
	for row := 0; row < g.rows; row++ {
		lines[row] = g.lineContent(row)
		if lines[row] != "" {
			lastNonEmpty = row
		}
	}
	if lastNonEmpty < 0 {
		return ""
	}
	return strings.Join(lines[:lastNonEmpty+1], "\n")
}

// Search finds all occurrences of pattern in the visible content and
// returns the position of the first character of each match. Columns are
// counted in codepoints, matching highlight region units.
func (g *Grid) Search(pattern string) []Position {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if pattern == "" {
		return nil
	}

	var matches []Position
	patternRunes := []rune(pattern)

	for row := 0; row < g.rows; row++ {
		lineRunes := []rune(g.lineContent(row))

		for col := 0; col+len(patternRunes) <= len(lineRunes); col++ {
			found := true
			for i, pr := range patternRunes {
				if lineRunes[col+i] != pr {
					found = false
					break
				}
			}
			if found {
				matches = append(matches, Position{Row: row, Col: col})
			}
		}
	}

	return matches
}

// --- Escape parsing ---

func (g *Grid) parseByte(b byte) {
	switch g.state {
	case stateGround:
		g.parseGround(b)
	case stateEscape:
		g.parseEscape(b)
	case stateCSI:
		g.parseCSI(b)
	case stateOSC:
		g.parseOSC(b)
	case stateDCS:
		g.parseDCS(b)
	case stateCharset:
		g.state = stateGround
	}
}

func (g *Grid) parseGround(b byte) {
	// Finish a pending UTF-8 sequence first.
	if g.utf8Len > 0 {
		if b >= 0x80 && b <= 0xBF {
			g.utf8Buf[g.utf8Pos] = b
			g.utf8Pos++
			if g.utf8Pos == g.utf8Len {
				r, _ := utf8.DecodeRune(g.utf8Buf[:g.utf8Len])
				g.putRune(r)
				g.utf8Len = 0
				g.utf8Pos = 0
			}
			return
		}
		// Invalid continuation: drop the partial sequence and process b normally.
		g.utf8Len = 0
		g.utf8Pos = 0
	}

	switch {
	case b == 0x1b:
		g.state = stateEscape
	case b == '\n':
		g.lineFeed()
	case b == '\r':
		g.cursorX = 0
	case b == '\t':
		g.tab()
	case b == '\b':
		if g.cursorX > 0 {
			g.cursorX--
		}
	case b == 0x07, b == 0x0e, b == 0x0f:
		// BEL, SO, SI
	case b >= 0x20 && b < 0x7f:
		g.putRune(rune(b))
	case b >= 0xC0 && b <= 0xDF:
		g.utf8Buf[0] = b
		g.utf8Len = 2
		g.utf8Pos = 1
	case b >= 0xE0 && b <= 0xEF:
		g.utf8Buf[0] = b
		g.utf8Len = 3
		g.utf8Pos = 1
	case b >= 0xF0 && b <= 0xF7:
		g.utf8Buf[0] = b
		g.utf8Len = 4
		g.utf8Pos = 1
	}
}

func (g *Grid) parseEscape(b byte) {
	switch b {
	case '[':
		g.state = stateCSI
		g.params = g.params[:0]
		g.paramBuf.Reset()
		g.csiPrivate = false
	case ']':
		g.state = stateOSC
	case 'P':
		g.state = stateDCS
	case '(', ')':
		g.state = stateCharset
	case '7':
		g.savedX, g.savedY = g.cursorX, g.cursorY
		g.savedFg, g.savedBg, g.savedFlags = g.fg, g.bg, g.flags
		g.state = stateGround
	case '8':
		g.cursorX = clamp(g.savedX, 0, g.cols-1)
		g.cursorY = clamp(g.savedY, 0, g.rows-1)
		g.fg, g.bg, g.flags = g.savedFg, g.savedBg, g.savedFlags
		g.state = stateGround
	case 'M':
		if g.cursorY > 0 {
			g.cursorY--
		}
		g.state = stateGround
	case 'D':
		g.lineFeed()
		g.state = stateGround
	case 'E':
		g.cursorX = 0
		g.lineFeed()
		g.state = stateGround
	case 'c':
		g.reset()
	default:
		g.state = stateGround
	}
}

func (g *Grid) parseCSI(b byte) {
	switch {
	case b >= '0' && b <= '9':
		g.paramBuf.WriteByte(b)
	case b == ';', b == ':':
		g.pushParam()
	case b == '?', b == '>', b == '<', b == '!', b == '=':
		g.csiPrivate = true
	case b >= 0x20 && b <= 0x2f:
		// Intermediate bytes; nothing downstream needs them.
		g.csiPrivate = true
	case b >= 0x40 && b <= 0x7e:
		g.pushParam()
		g.dispatchCSI(b)
		g.state = stateGround
	case b == 0x1b:
		g.state = stateEscape
	default:
		g.state = stateGround
	}
}

func (g *Grid) pushParam() {
	if g.paramBuf.Len() > 0 {
		v, _ := strconv.Atoi(g.paramBuf.String())
		g.params = append(g.params, v)
	} else {
		g.params = append(g.params, 0)
	}
	g.paramBuf.Reset()
}

// param returns the idx-th CSI parameter, or def when absent or zero.
func (g *Grid) param(idx, def int) int {
	if idx < len(g.params) && g.params[idx] != 0 {
		return g.params[idx]
	}
	return def
}

func (g *Grid) dispatchCSI(final byte) {
	// Private sequences (DEC modes, SGR mouse reports, queries) carry
	// markers like '?' or '<' and must not reach the SGR executor.
	if g.csiPrivate {
		return
	}

	switch final {
	case 'A': // CUU
		g.cursorY = clamp(g.cursorY-g.param(0, 1), 0, g.rows-1)
	case 'B': // CUD
		g.cursorY = clamp(g.cursorY+g.param(0, 1), 0, g.rows-1)
	case 'C': // CUF
		g.cursorX = clamp(g.cursorX+g.param(0, 1), 0, g.cols-1)
	case 'D': // CUB
		g.cursorX = clamp(g.cursorX-g.param(0, 1), 0, g.cols-1)
	case 'G': // CHA
		g.cursorX = clamp(g.param(0, 1)-1, 0, g.cols-1)
	case 'H', 'f': // CUP / HVP
		g.cursorY = clamp(g.param(0, 1)-1, 0, g.rows-1)
		g.cursorX = clamp(g.param(1, 1)-1, 0, g.cols-1)
	case 'J': // ED
		g.eraseDisplay(g.param(0, 0))
	case 'K': // EL
		g.eraseLine(g.param(0, 0))
	case 'd': // VPA
		g.cursorY = clamp(g.param(0, 1)-1, 0, g.rows-1)
	case 'm': // SGR
		g.applySGR()
	}
}

func (g *Grid) applySGR() {
	if len(g.params) == 0 {
		g.params = append(g.params, 0)
	}

	for i := 0; i < len(g.params); i++ {
		switch p := g.params[i]; {
		case p == 0:
			g.fg, g.bg, g.flags = Color{}, Color{}, 0
		case p == 1:
			g.flags |= FlagBold
		case p == 2:
			g.flags |= FlagFaint
		case p == 3:
			g.flags |= FlagItalic
		case p == 4:
			g.flags |= FlagUnderline
		case p == 7:
			g.flags |= FlagInverse
		case p == 9:
			g.flags |= FlagStrikethrough
		case p == 21, p == 22:
			g.flags &^= FlagBold | FlagFaint
		case p == 23:
			g.flags &^= FlagItalic
		case p == 24:
			g.flags &^= FlagUnderline
		case p == 27:
			g.flags &^= FlagInverse
		case p == 29:
			g.flags &^= FlagStrikethrough
		case p >= 30 && p <= 37:
			g.fg = IndexedColor(uint8(p - 30))
		case p == 38:
			i = g.extendedColor(i, &g.fg)
		case p == 39:
			g.fg = Color{}
		case p >= 40 && p <= 47:
			g.bg = IndexedColor(uint8(p - 40))
		case p == 48:
			i = g.extendedColor(i, &g.bg)
		case p == 49:
			g.bg = Color{}
		case p >= 90 && p <= 97:
			g.fg = IndexedColor(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			g.bg = IndexedColor(uint8(p - 100 + 8))
		}
	}
}

// extendedColor consumes an SGR 38/48 extended color sequence starting at
// params[i] and returns the index of the last parameter used.
func (g *Grid) extendedColor(i int, c *Color) int {
	if i+1 >= len(g.params) {
		return i
	}

	switch g.params[i+1] {
	case 2: // 38;2;r;g;b
		if i+4 < len(g.params) {
			*c = RGBColor(
				uint8(clamp(g.params[i+2], 0, 255)),
				uint8(clamp(g.params[i+3], 0, 255)),
				uint8(clamp(g.params[i+4], 0, 255)),
			)
			return i + 4
		}
	case 5: // 38;5;n
		if i+2 < len(g.params) {
			*c = IndexedColor(uint8(clamp(g.params[i+2], 0, 255)))
			return i + 2
		}
	}
	return i + 1
}

func (g *Grid) parseOSC(b byte) {
	// Consume until BEL or ST; the payload (titles, clipboard, colors)
	// has no effect on cell content.
	if b == 0x07 {
		g.state = stateGround
	} else if b == 0x1b {
		g.state = stateEscape
	}
}

func (g *Grid) parseDCS(b byte) {
	if b == 0x1b {
		g.state = stateEscape
	}
}

// --- Cell placement ---

func (g *Grid) putRune(r rune) {
	w := runeWidth(r)
	if w == 0 {
		return
	}

	// A wide character that would straddle the last column wraps first,
	// leaving a styled blank in the remaining cell.
	if w == 2 && g.cursorX == g.cols-1 {
		g.put(g.cursorY, g.cursorX, Cell{Char: ' ', Fg: g.fg, Bg: g.bg, Flags: g.flags})
		g.cursorX = g.cols
	}

	if g.cursorX >= g.cols {
		g.cursorX = 0
		g.lineFeed()
	}

	cell := Cell{Char: r, Fg: g.fg, Bg: g.bg, Flags: g.flags}
	if w == 2 {
		cell.SetFlag(FlagWideLead)
	}
	g.put(g.cursorY, g.cursorX, cell)

	if w == 2 && g.cursorX+1 < g.cols {
		i := g.cursorY*g.cols + g.cursorX + 1
		if g.cells[i].IsWideLead() && g.cursorX+2 < g.cols {
			g.cells[i+1] = Cell{}
		}
		g.cells[i] = Cell{Fg: g.fg, Bg: g.bg, Flags: g.flags | FlagWideContinuation}
	}

	g.cursorX += w
}

// put writes one cell, clearing the other half of any wide character it
// splits in the process.
func (g *Grid) put(row, col int, cell Cell) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}

	i := row*g.cols + col
	old := g.cells[i]
	if old.IsWideContinuation() && col > 0 && g.cells[i-1].IsWideLead() {
		g.cells[i-1] = Cell{}
	}
	if old.IsWideLead() && col+1 < g.cols {
		g.cells[i+1] = Cell{}
	}
	g.cells[i] = cell
}

func (g *Grid) lineFeed() {
	g.cursorY++
	if g.cursorY >= g.rows {
		g.scrollUp(g.cursorY - g.rows + 1)
		g.cursorY = g.rows - 1
	}
}

// tab moves the cursor to the next tab stop (every 8 columns).
func (g *Grid) tab() {
	g.cursorX = ((g.cursorX / 8) + 1) * 8
	if g.cursorX >= g.cols {
		g.cursorX = g.cols - 1
	}
}

// scrollUp shifts all rows up by n, clearing the vacated bottom rows.
func (g *Grid) scrollUp(n int) {
	if n <= 0 {
		return
	}
	if n > g.rows {
		n = g.rows
	}

	copy(g.cells, g.cells[n*g.cols:])

	tail := g.cells[(g.rows-n)*g.cols:]
	for i := range tail {
		tail[i] = Cell{}
	}
}

// eraseDisplay clears part of the grid: 0 = cursor to end, 1 = start to
// cursor, 2 and 3 = everything. Erased cells become null.
func (g *Grid) eraseDisplay(mode int) {
	cur := g.cursorY*g.cols + g.cursorX

	switch mode {
	case 0:
		g.clearCells(cur, len(g.cells))
	case 1:
		g.clearCells(0, cur+1)
	case 2, 3:
		g.clearCells(0, len(g.cells))
	}
}

// eraseLine clears part of the cursor row: 0 = cursor to end of line,
// 1 = start of line to cursor, 2 = whole line.
func (g *Grid) eraseLine(mode int) {
	start := g.cursorY * g.cols
	cur := start + g.cursorX

	switch mode {
	case 0:
		g.clearCells(cur, start+g.cols)
	case 1:
		g.clearCells(start, cur+1)
	case 2:
		g.clearCells(start, start+g.cols)
	}
}

func (g *Grid) clearCells(from, to int) {
	from = clamp(from, 0, len(g.cells))
	to = clamp(to, 0, len(g.cells))
	for i := from; i < to; i++ {
		g.cells[i] = Cell{}
	}
}

// clamp ensures the value is within the given range.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
