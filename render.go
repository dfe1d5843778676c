package termwire

import (
	"image"
	"image/color"
	"io"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontFinder locates font files by name (useful for avoiding font library dependencies).
type FontFinder interface {
	// Find returns the filesystem path to a font file matching the given name.
	Find(name string) (string, error)
}

// RenderConfig controls how a frame is rendered to an image.
type RenderConfig struct {
	// Font face to use for rendering. If nil and FontName is empty, uses basicfont.Face7x13.
	Font font.Face

	// FontFinder is used to find fonts by name. Optional.
	FontFinder FontFinder

	// FontName is the font name to find using FontFinder.
	FontName string

	// FontSize is the font size when using FontFinder. Default 14.
	FontSize float64

	// CellWidth and CellHeight override the cell dimensions.
	// If zero, derived from font metrics.
	CellWidth  int
	CellHeight int

	// DefaultFG is the color for spans without a foreground. If nil, uses DefaultForeground.
	DefaultFG *color.RGBA

	// DefaultBG is the backdrop and the color for spans without a background. If nil, uses DefaultBackground.
	DefaultBG *color.RGBA

	// CursorColor is the cursor color. If nil, the cursor inverts the pixels under it.
	CursorColor *color.RGBA

	// ShowCursor controls whether to render the cursor. Default true.
	ShowCursor *bool
}

// LoadFont loads a TrueType or OpenType font from a file path.
func LoadFont(path string, size float64) (font.Face, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadFontFromReader(f, size)
}

// LoadFontFromReader loads a TrueType or OpenType font from an io.Reader.
func LoadFontFromReader(r io.Reader, size float64) (font.Face, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return LoadFontFromBytes(data, size)
}

// LoadFontFromBytes loads a TrueType or OpenType font from raw bytes.
func LoadFontFromBytes(data []byte, size float64) (font.Face, error) {
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}

	return face, nil
}

// Render draws the frame to an RGBA image using default settings
// (basicfont, default colors).
func Render(frame *TerminalData) *image.RGBA {
	return RenderWithConfig(frame, &RenderConfig{})
}

// RenderWithConfig draws the frame to an RGBA image with custom font,
// colors, and cursor settings. The image covers the frame's line window:
// frame.Cols columns wide, len(frame.Lines) rows tall.
//
// Spans are painted adjacently from column 0; the wire format does not
// record the positions of gaps left by never-written cells, so rows with
// interior gaps render their trailing spans shifted left.
func RenderWithConfig(frame *TerminalData, cfg *RenderConfig) *image.RGBA {
	face := cfg.Font
	if face == nil && cfg.FontFinder != nil && cfg.FontName != "" {
		size := cfg.FontSize
		if size == 0 {
			size = 14
		}
		if path, err := cfg.FontFinder.Find(cfg.FontName); err == nil {
			if loadedFace, err := LoadFont(path, size); err == nil {
				face = loadedFace
			}
		}
	}
	if face == nil {
		face = basicfont.Face7x13
	}

	cellWidth := cfg.CellWidth
	cellHeight := cfg.CellHeight
	if cellWidth == 0 || cellHeight == 0 {
		metrics := face.Metrics()
		if cellWidth == 0 {
			adv, _ := face.GlyphAdvance('M')
			cellWidth = adv.Ceil()
			if cellWidth == 0 {
				cellWidth = 7 // fallback for basicfont
			}
		}
		if cellHeight == 0 {
			cellHeight = metrics.Height.Ceil()
		}
	}

	defaultFG := cfg.DefaultFG
	if defaultFG == nil {
		defaultFG = &DefaultForeground
	}

	defaultBG := cfg.DefaultBG
	if defaultBG == nil {
		defaultBG = &DefaultBackground
	}

	showCursor := true
	if cfg.ShowCursor != nil {
		showCursor = *cfg.ShowCursor
	}

	imgWidth := frame.Cols * cellWidth
	imgHeight := len(frame.Lines) * cellHeight
	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))

	fillRect(img, 0, 0, imgWidth, imgHeight, *defaultBG)

	metrics := face.Metrics()

	for row, line := range frame.Lines {
		y := row * cellHeight
		baseline := y + metrics.Ascent.Ceil()
		col := 0

		for _, sp := range line {
			fg := *defaultFG
			if c, err := ParseHexColor(sp.Fg); sp.Fg != "" && err == nil {
				fg = c
			}

			bg := *defaultBG
			hasBg := false
			if c, err := ParseHexColor(sp.Bg); sp.Bg != "" && err == nil {
				bg = c
				hasBg = true
			}

			if sp.Flags&FlagInverse != 0 {
				fg, bg = bg, fg
				hasBg = true
			}
			if sp.Flags&FlagFaint != 0 {
				fg = dimColor(fg)
			}

			for _, ch := range sp.Text {
				w := runeWidth(ch)
				if w == 0 {
					continue
				}
				if col >= frame.Cols {
					break
				}

				x := col * cellWidth

				if hasBg {
					fillRect(img, x, y, w*cellWidth, cellHeight, bg)
				}

				if ch != ' ' {
					d := &font.Drawer{
						Dst:  img,
						Src:  image.NewUniform(fg),
						Face: face,
						Dot:  fixed.P(x, baseline),
					}
					d.DrawString(string(ch))
				}

				if sp.Flags&FlagUnderline != 0 {
					underlineY := baseline + 2
					for px := 0; px < w*cellWidth && underlineY < imgHeight; px++ {
						img.Set(x+px, underlineY, fg)
					}
				}
				if sp.Flags&FlagStrikethrough != 0 {
					strikeY := y + cellHeight/2
					for px := 0; px < w*cellWidth; px++ {
						img.Set(x+px, strikeY, fg)
					}
				}

				col += w
			}
		}
	}

	// The cursor position is absolute in the grid; draw it only when its
	// row falls inside the frame's window.
	if showCursor {
		cx, cy := frame.Cursor[0], frame.Cursor[1]-frame.Offset
		if cx >= 0 && cx < frame.Cols && cy >= 0 && cy < len(frame.Lines) {
			x := cx * cellWidth
			y := cy * cellHeight

			if cfg.CursorColor != nil {
				fillRect(img, x, y, cellWidth, cellHeight, *cfg.CursorColor)
			} else {
				for py := 0; py < cellHeight; py++ {
					for px := 0; px < cellWidth; px++ {
						existing := img.RGBAAt(x+px, y+py)
						img.Set(x+px, y+py, color.RGBA{
							R: 255 - existing.R,
							G: 255 - existing.G,
							B: 255 - existing.B,
							A: 255,
						})
					}
				}
			}
		}
	}

	return img
}

// fillRect paints a solid rectangle, clipped to the image bounds.
func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			img.Set(x+px, y+py, c)
		}
	}
}

// dimColor reduces a color's brightness for faint text.
func dimColor(c color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * 0.66),
		G: uint8(float64(c.G) * 0.66),
		B: uint8(float64(c.B) * 0.66),
		A: c.A,
	}
}
