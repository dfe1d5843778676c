package termwire

import (
	"image/color"
	"testing"
)

func TestDefaultPalette_Values(t *testing.T) {
	tests := []struct {
		index int
		want  color.RGBA
	}{
		{0, color.RGBA{0, 0, 0, 255}},        // black
		{1, color.RGBA{205, 49, 49, 255}},    // red
		{2, color.RGBA{13, 188, 121, 255}},   // green
		{15, color.RGBA{255, 255, 255, 255}}, // bright white
		{16, color.RGBA{0, 0, 0, 255}},       // cube origin
		{196, color.RGBA{255, 0, 0, 255}},    // cube pure red
		{231, color.RGBA{255, 255, 255, 255}},
		{232, color.RGBA{8, 8, 8, 255}},   // grayscale start
		{255, color.RGBA{238, 238, 238, 255}},
	}

	for _, tt := range tests {
		if got := DefaultPalette[tt.index]; got != tt.want {
			t.Errorf("DefaultPalette[%d] = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestResolveColor(t *testing.T) {
	if _, ok := resolveColor(Color{}, &DefaultPalette); ok {
		t.Error("default color should not resolve to a concrete value")
	}

	got, ok := resolveColor(IndexedColor(2), &DefaultPalette)
	if !ok {
		t.Fatal("indexed color should resolve")
	}
	if want := (color.RGBA{13, 188, 121, 255}); got != want {
		t.Errorf("resolveColor(IndexedColor(2)) = %v, want %v", got, want)
	}

	got, ok = resolveColor(RGBColor(10, 20, 30), &DefaultPalette)
	if !ok {
		t.Fatal("RGB color should resolve")
	}
	if want := (color.RGBA{10, 20, 30, 255}); got != want {
		t.Errorf("resolveColor(RGBColor(10,20,30)) = %v, want %v", got, want)
	}
}

func TestHexColor(t *testing.T) {
	tests := []struct {
		c    color.RGBA
		want string
	}{
		{color.RGBA{0, 0, 0, 255}, "#000000"},
		{color.RGBA{255, 255, 255, 255}, "#ffffff"},
		{color.RGBA{255, 0, 0, 255}, "#ff0000"},
		{color.RGBA{13, 188, 121, 255}, "#0dbc79"},
	}

	for _, tt := range tests {
		if got := hexColor(tt.c); got != tt.want {
			t.Errorf("hexColor(%v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"red", "#ff0000", color.RGBA{255, 0, 0, 255}, false},
		{"green", "#0dbc79", color.RGBA{13, 188, 121, 255}, false},
		{"uppercase", "#0DBC79", color.RGBA{13, 188, 121, 255}, false},
		{"white", "#FFFFFF", color.RGBA{255, 255, 255, 255}, false},
		{"missing hash", "ff0000", color.RGBA{}, true},
		{"too short", "#ff00", color.RGBA{}, true},
		{"too long", "#ff000000", color.RGBA{}, true},
		{"bad digit", "#gg0000", color.RGBA{}, true},
		{"empty", "", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHexColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseHexColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseHexColor_RoundTrip(t *testing.T) {
	colors := []color.RGBA{
		{0, 0, 0, 255},
		{13, 188, 121, 255},
		{255, 255, 255, 255},
		{1, 2, 3, 255},
	}

	for _, c := range colors {
		got, err := ParseHexColor(hexColor(c))
		if err != nil {
			t.Fatalf("ParseHexColor(hexColor(%v)) error: %v", c, err)
		}
		if got != c {
			t.Errorf("round trip of %v = %v", c, got)
		}
	}
}
