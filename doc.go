// Package termwire encodes terminal grids into a compact, paginated wire
// format for remote renderers.
//
// The package sits between a terminal-emulation engine and a presentation
// layer: it consumes a decoded cell grid and produces styled runs
// ("spans") that downstream viewers paint, plus a highlight pass that
// splits those runs around arbitrary column ranges (search hits, secret
// masking, etc.).
//
// # Quick Start
//
// Feed program output into a [Grid] and encode it:
//
//	grid := termwire.NewGrid(80, 24)
//	grid.WriteString("\x1b[32mHello\x1b[0m World")
//
//	frame, err := termwire.Encode(grid, 0, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, _ := json.Marshal(frame)
//
// # Architecture
//
// The package is organized around these core types:
//
//   - [Source]: the grid snapshot contract; any emulator can implement it
//   - [Grid]: a built-in Source fed through [io.Writer]
//   - [Encoder]: merges same-style cell runs into spans and paginates rows
//   - [TerminalData]: one encoded frame, ready for JSON transport
//   - [HighlightRegion]: a column range to repaint or mask after encoding
//
// # Encoding
//
// [Encoder.Encode] walks the requested row window and merges maximal runs
// of identically-styled cells into [Span] values. Styles are resolved to
// concrete colors first: indexed colors go through the palette, and a
// background equal to the terminal default is normalized to "no
// background" so spans stay transparent over the renderer's backdrop.
// Cells nothing was written to produce no span at all, and a wide
// character contributes its text once with width 2.
//
// Pagination is plain offset/limit over rows. TotalLines always carries
// the full grid height, so paging past the end yields an empty window,
// not an error:
//
//	enc := termwire.NewEncoder(
//	    termwire.WithPalette(&myPalette),
//	    termwire.WithMaxResultBytes(1 << 20),
//	)
//	frame, err := enc.Encode(grid, 40, 20) // rows 40-59
//
// Every call allocates a fresh frame; an Encoder is safe for concurrent
// use.
//
// # Wire Format
//
// Frames marshal to the JSON structure consumed by viewers:
//
//	{
//	  "cols": 80, "rows": 24,
//	  "cursor": [0, 0],
//	  "offset": 0, "totalLines": 24,
//	  "lines": [[["Hello", "#0dbc79", null, 0, 5], [" World", null, null, 0, 6]]]
//	}
//
// Each span is the 5-tuple [text, fg, bg, flags, width]. Flag bits:
// bold=1, italic=2, underline=4, strikethrough=8, inverse=16, faint=32.
//
// # Highlights
//
// [ApplyHighlights] re-partitions encoded lines so each highlight region
// becomes its own chunk with an override background, optionally masking
// the covered text:
//
//	regions := []termwire.HighlightRegion{
//	    {Line: 0, Start: 0, End: 5, BackgroundColor: "#ff0000"},
//	}
//	lines := termwire.ApplyHighlights(frame.Lines, regions)
//
// Region columns count codepoints, not display width. The call is pure:
// it never mutates its inputs, and malformed regions are ignored.
//
// # Rendering
//
// [Render] paints a frame to an image for thumbnails and snapshot tests:
//
//	img := termwire.Render(frame)
//	png.Encode(file, img)
//
// # Thread Safety
//
// Grid methods are safe for concurrent use via internal locking. Encoder
// and the highlight splitter keep no mutable state, so any number of
// goroutines may share them.
package termwire
