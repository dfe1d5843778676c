package termwire

import (
	"errors"
	"image/color"
	"testing"
)

func TestEncode_MergesStyleRuns(t *testing.T) {
	grid := NewGrid(120, 5)
	grid.WriteString("\x1b[32mHello\x1b[0m World")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if frame.TotalLines != 5 {
		t.Errorf("TotalLines = %d, want 5", frame.TotalLines)
	}
	if len(frame.Lines) != 5 {
		t.Fatalf("len(Lines) = %d, want 5", len(frame.Lines))
	}

	line := frame.Lines[0]
	if len(line) != 2 {
		t.Fatalf("len(Lines[0]) = %d, want 2", len(line))
	}

	want0 := Span{Text: "Hello", Fg: "#0dbc79", Bg: "", Flags: 0, Width: 5}
	if line[0] != want0 {
		t.Errorf("Lines[0][0] = %+v, want %+v", line[0], want0)
	}

	want1 := Span{Text: " World", Fg: "", Bg: "", Flags: 0, Width: 6}
	if line[1] != want1 {
		t.Errorf("Lines[0][1] = %+v, want %+v", line[1], want1)
	}
}

func TestEncode_Pagination(t *testing.T) {
	grid := NewGrid(20, 5)
	grid.WriteString("row 0\r\nrow 1\r\nrow 2\r\nrow 3\r\nrow 4")

	tests := []struct {
		name      string
		offset    int
		limit     int
		wantLen   int
		wantFirst string
	}{
		{"full grid", 0, 0, 5, "row 0"},
		{"offset with limit", 2, 1, 1, "row 2"},
		{"offset to end", 2, 0, 3, "row 2"},
		{"limit past end", 4, 2, 1, "row 4"},
		{"offset at end", 5, 0, 0, ""},
		{"offset beyond end", 9, 3, 0, ""},
		{"limit only", 0, 2, 2, "row 0"},
		{"negative offset clamps", -3, 2, 2, "row 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(grid, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			if len(frame.Lines) != tt.wantLen {
				t.Fatalf("len(Lines) = %d, want %d", len(frame.Lines), tt.wantLen)
			}
			if frame.TotalLines != 5 {
				t.Errorf("TotalLines = %d, want 5", frame.TotalLines)
			}
			if tt.wantLen > 0 {
				if got := frame.Lines[0].Text(); got != tt.wantFirst {
					t.Errorf("Lines[0].Text() = %q, want %q", got, tt.wantFirst)
				}
			}
		})
	}
}

func TestEncode_WindowSizeProperty(t *testing.T) {
	grid := NewGrid(10, 8)

	for offset := 0; offset <= 10; offset++ {
		for limit := 0; limit <= 10; limit++ {
			frame, err := Encode(grid, offset, limit)
			if err != nil {
				t.Fatalf("Encode(%d, %d) error: %v", offset, limit, err)
			}

			want := frame.TotalLines - offset
			if want < 0 {
				want = 0
			}
			if limit > 0 && limit < want {
				want = limit
			}

			if len(frame.Lines) != want {
				t.Errorf("Encode(%d, %d): len(Lines) = %d, want %d", offset, limit, len(frame.Lines), want)
			}
		}
	}
}

func TestEncode_DefaultBackgroundIsNull(t *testing.T) {
	grid := NewGrid(20, 2)
	grid.WriteString("\x1b[40mA\x1b[48;2;0;0;0mB\x1b[41mC")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	line := frame.Lines[0]
	if len(line) != 2 {
		t.Fatalf("len(Lines[0]) = %d, want 2", len(line))
	}

	// Indexed black and RGB black both resolve to the default background,
	// so A and B normalize to "no background" and merge into one run.
	if line[0].Text != "AB" || line[0].Bg != "" {
		t.Errorf("Lines[0][0] = %+v, want text \"AB\" with no background", line[0])
	}
	if line[1].Text != "C" || line[1].Bg != "#cd3131" {
		t.Errorf("Lines[0][1] = %+v, want text \"C\" with bg #cd3131", line[1])
	}
}

func TestEncode_CustomDefaultBackground(t *testing.T) {
	grid := NewGrid(10, 1)
	grid.WriteString("\x1b[48;2;255;0;0mX")

	enc := NewEncoder(WithDefaultBackground(color.RGBA{R: 255, A: 255}))
	frame, err := enc.Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := frame.Lines[0][0].Bg; got != "" {
		t.Errorf("Bg = %q, want \"\" (matches configured default)", got)
	}

	frame, err = Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := frame.Lines[0][0].Bg; got != "#ff0000" {
		t.Errorf("Bg = %q, want \"#ff0000\" under the stock default", got)
	}
}

func TestEncode_GapSplitsSpans(t *testing.T) {
	grid := NewGrid(10, 1)
	grid.WriteString("AB")
	grid.WriteString("\x1b[1;6H")
	grid.WriteString("CD")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	line := frame.Lines[0]
	if len(line) != 2 {
		t.Fatalf("len(Lines[0]) = %d, want 2 (gap must split the run)", len(line))
	}
	if line[0].Text != "AB" || line[0].Width != 2 {
		t.Errorf("Lines[0][0] = %+v, want \"AB\" width 2", line[0])
	}
	if line[1].Text != "CD" || line[1].Width != 2 {
		t.Errorf("Lines[0][1] = %+v, want \"CD\" width 2", line[1])
	}
}

func TestEncode_WideChar(t *testing.T) {
	grid := NewGrid(10, 2)
	grid.WriteString("a中b")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	line := frame.Lines[0]
	if len(line) != 1 {
		t.Fatalf("len(Lines[0]) = %d, want 1", len(line))
	}

	sp := line[0]
	if sp.Text != "a中b" {
		t.Errorf("Text = %q, want %q", sp.Text, "a中b")
	}
	if sp.Width != 4 {
		t.Errorf("Width = %d, want 4 (wide lead counts 2)", sp.Width)
	}
	if got := len([]rune(sp.Text)); got != 3 {
		t.Errorf("rune count = %d, want 3 (continuation cell must not emit text)", got)
	}
}

func TestEncode_WideCharStyleBoundary(t *testing.T) {
	grid := NewGrid(10, 1)
	grid.WriteString("\x1b[32m中\x1b[31m界")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	line := frame.Lines[0]
	if len(line) != 2 {
		t.Fatalf("len(Lines[0]) = %d, want 2", len(line))
	}
	if line[0].Text != "中" || line[0].Width != 2 || line[0].Fg != "#0dbc79" {
		t.Errorf("Lines[0][0] = %+v", line[0])
	}
	if line[1].Text != "界" || line[1].Width != 2 || line[1].Fg != "#cd3131" {
		t.Errorf("Lines[0][1] = %+v", line[1])
	}
}

func TestEncode_FlagsOnWire(t *testing.T) {
	grid := NewGrid(10, 1)
	grid.WriteString("\x1b[1;2;3;4;7;9mX")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := FlagBold | FlagFaint | FlagItalic | FlagUnderline | FlagInverse | FlagStrikethrough
	if got := frame.Lines[0][0].Flags; got != want {
		t.Errorf("Flags = %d, want %d", got, want)
	}
}

func TestEncode_AdjacentSpansDiffer(t *testing.T) {
	grid := NewGrid(40, 3)
	grid.WriteString("\x1b[31mred\x1b[32mgreen\x1b[31mred\x1b[0m plain\r\n")
	grid.WriteString("\x1b[1mbold\x1b[0m\x1b[4munder\x1b[0m")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	for row, line := range frame.Lines {
		for i := 1; i < len(line); i++ {
			prev, cur := line[i-1], line[i]
			if prev.Fg == cur.Fg && prev.Bg == cur.Bg && prev.Flags == cur.Flags {
				t.Errorf("Lines[%d]: spans %d and %d share style %q/%q/%d", row, i-1, i, cur.Fg, cur.Bg, cur.Flags)
			}
		}
	}
}

func TestEncode_EmptyGrid(t *testing.T) {
	grid := NewGrid(10, 3)

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if len(frame.Lines) != 3 {
		t.Fatalf("len(Lines) = %d, want 3", len(frame.Lines))
	}
	for i, line := range frame.Lines {
		if len(line) != 0 {
			t.Errorf("Lines[%d] has %d spans, want 0", i, len(line))
		}
	}
}

func TestEncode_CursorAndDimensions(t *testing.T) {
	grid := NewGrid(30, 4)
	grid.WriteString("abc")

	frame, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if frame.Cols != 30 || frame.Rows != 4 {
		t.Errorf("dimensions = %dx%d, want 30x4", frame.Cols, frame.Rows)
	}
	if frame.Cursor != [2]int{3, 0} {
		t.Errorf("Cursor = %v, want [3 0]", frame.Cursor)
	}

	grid.WriteString("\r\n")
	frame, err = Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if frame.Cursor != [2]int{0, 1} {
		t.Errorf("Cursor = %v, want [0 1]", frame.Cursor)
	}
}

func TestEncode_LineByteCap(t *testing.T) {
	grid := NewGrid(20, 2)
	grid.WriteString("\x1b[31mab\x1b[0mcdef\r\nnext")

	enc := NewEncoder(WithMaxLineBytes(4))
	frame, err := enc.Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	line := frame.Lines[0]
	if len(line) != 2 {
		t.Fatalf("len(Lines[0]) = %d, want 2", len(line))
	}
	if line[0].Text != "ab" || line[1].Text != "cd" {
		t.Errorf("capped row = %q + %q, want \"ab\" + \"cd\"", line[0].Text, line[1].Text)
	}

	// The cap is per row; the next row is unaffected.
	if got := frame.Lines[1].Text(); got != "next" {
		t.Errorf("Lines[1].Text() = %q, want %q", got, "next")
	}
}

func TestEncode_ResultCapFailsAtomically(t *testing.T) {
	grid := NewGrid(20, 2)
	grid.WriteString("abc\r\ndef")

	enc := NewEncoder(WithMaxResultBytes(4))
	frame, err := enc.Encode(grid, 0, 0)

	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("error = %v, want ErrCapacityExceeded", err)
	}
	if frame != nil {
		t.Errorf("frame = %+v, want nil (no partial result)", frame)
	}
}

func TestEncode_NilSource(t *testing.T) {
	_, err := Encode(nil, 0, 0)
	if !errors.Is(err, ErrNilSource) {
		t.Errorf("error = %v, want ErrNilSource", err)
	}
}

func TestEncoder_ConcurrentUse(t *testing.T) {
	grid := NewGrid(40, 10)
	grid.WriteString("\x1b[33msome shared content\x1b[0m")

	enc := NewEncoder()
	done := make(chan error, 8)

	for i := 0; i < 8; i++ {
		go func(offset int) {
			_, err := enc.Encode(grid, offset%3, 4)
			done <- err
		}(i)
	}

	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent Encode() error: %v", err)
		}
	}
}
