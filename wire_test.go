package termwire

import (
	"encoding/json"
	"testing"
)

func TestSpan_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		span Span
		want string
	}{
		{
			"plain text",
			Span{Text: " World", Width: 6},
			`[" World",null,null,0,6]`,
		},
		{
			"foreground only",
			Span{Text: "Hello", Fg: "#0dbc79", Width: 5},
			`["Hello","#0dbc79",null,0,5]`,
		},
		{
			"both colors and flags",
			Span{Text: "X", Fg: "#ffffff", Bg: "#000001", Flags: FlagUnderline | FlagInverse, Width: 1},
			`["X","#ffffff","#000001",20,1]`,
		},
		{
			"placement bits stay off the wire",
			Span{Text: "中", Flags: FlagBold | FlagWideLead, Width: 2},
			`["中",null,null,1,2]`,
		},
		{
			"empty text",
			Span{},
			`["",null,null,0,0]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.span)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSpan_RoundTrip(t *testing.T) {
	spans := []Span{
		{Text: "hello", Fg: "#0dbc79", Bg: "#1e1e1e", Flags: FlagBold | FlagItalic, Width: 5},
		{Text: " ", Width: 1},
		{Text: "日本", Fg: "#cd3131", Flags: FlagStrikethrough, Width: 4},
		{Text: "dim", Flags: FlagFaint, Width: 3},
	}

	for _, want := range spans {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%+v) error: %v", want, err)
		}

		var got Span
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", data, err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestSpan_UnmarshalJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"too few elements", `["a",null,null,0]`},
		{"too many elements", `["a",null,null,0,1,2]`},
		{"not an array", `"hello"`},
		{"text not a string", `[1,null,null,0,1]`},
		{"fg not a string", `["a",7,null,0,1]`},
		{"flags not a number", `["a",null,null,"bold",1]`},
		{"width not a number", `["a",null,null,0,"wide"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Span
			if err := json.Unmarshal([]byte(tt.data), &s); err == nil {
				t.Errorf("Unmarshal(%s) succeeded, want error", tt.data)
			}
		})
	}
}

func TestTerminalData_MarshalJSON(t *testing.T) {
	frame := &TerminalData{
		Cols:       2,
		Rows:       2,
		Cursor:     [2]int{0, 1},
		Offset:     0,
		TotalLines: 2,
		Lines: []Line{
			{Span{Text: "Hi", Fg: "#0dbc79", Flags: FlagBold, Width: 2}},
			{},
		},
	}

	got, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `{"cols":2,"rows":2,"cursor":[0,1],"offset":0,"totalLines":2,"lines":[[["Hi","#0dbc79",null,1,2]],[]]}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestTerminalData_RoundTrip(t *testing.T) {
	grid := NewGrid(20, 3)
	grid.WriteString("\x1b[32mok\x1b[0m fine\r\n\r\n\x1b[41m fail \x1b[0m")

	want, err := Encode(grid, 0, 0)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got TerminalData
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if got.Cols != want.Cols || got.Rows != want.Rows || got.Cursor != want.Cursor ||
		got.Offset != want.Offset || got.TotalLines != want.TotalLines {
		t.Errorf("metadata = %+v, want %+v", got, want)
	}
	if !linesEqual(got.Lines, want.Lines) {
		t.Errorf("Lines = %+v, want %+v", got.Lines, want.Lines)
	}
}

func TestLine_Text(t *testing.T) {
	tests := []struct {
		name string
		line Line
		want string
	}{
		{"empty", Line{}, ""},
		{"single span", Line{{Text: "hello"}}, "hello"},
		{"multiple spans", Line{{Text: "foo"}, {Text: " "}, {Text: "bar"}}, "foo bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.line.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}
