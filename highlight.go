package termwire

import (
	"sort"
	"strings"
)

// HighlightRegion paints a column range of one line with an override
// background, optionally masking the covered text. Start and End are
// codepoint offsets into the line's visible text (End exclusive), not
// display widths, so a wide character still advances the range by one.
type HighlightRegion struct {
	Line            int    `json:"line"`
	Start           int    `json:"start"`
	End             int    `json:"end"`
	BackgroundColor string `json:"backgroundColor"`
	ReplaceWithX    bool   `json:"replaceWithX"`
}

// valid reports whether the region can have any visible effect. Malformed
// regions (empty or inverted range, line out of range) are no-ops.
func (r HighlightRegion) valid(lineCount int) bool {
	return r.Start >= 0 && r.Start < r.End && r.Line >= 0 && r.Line < lineCount
}

// ApplyHighlights re-partitions each targeted line so every resulting
// chunk is homogeneous in both original style and highlight state. The
// concatenated text of a line is preserved, except that masked regions
// substitute an equal number of 'x' characters.
//
// Overlapping regions on one line are resolved in ascending start order:
// columns already claimed by an earlier region are not re-painted by a
// later one. Regions need not arrive sorted.
//
// The function is pure. Inputs are never mutated; lines without a matching
// region are carried over as-is.
func ApplyHighlights(lines []Line, regions []HighlightRegion) []Line {
	byLine := make(map[int][]HighlightRegion)
	for _, r := range regions {
		if !r.valid(len(lines)) {
			continue
		}
		byLine[r.Line] = append(byLine[r.Line], r)
	}
	if len(byLine) == 0 {
		return lines
	}

	out := make([]Line, len(lines))
	copy(out, lines)

	for idx, lineRegions := range byLine {
		sort.SliceStable(lineRegions, func(i, j int) bool {
			return lineRegions[i].Start < lineRegions[j].Start
		})
		out[idx] = splitLine(lines[idx], lineRegions)
	}

	return out
}

// splitLine rebuilds one line's chunk sequence around the regions, which
// must be sorted by ascending start. The running column cursor counts
// codepoints across the whole line, matching the region's units.
func splitLine(line Line, regions []HighlightRegion) Line {
	out := make(Line, 0, len(line)+2*len(regions))
	col := 0

	for _, chunk := range line {
		runes := []rune(chunk.Text)
		chunkStart := col
		chunkEnd := col + len(runes)
		col = chunkEnd

		if !anyIntersects(regions, chunkStart, chunkEnd) {
			out = append(out, chunk)
			continue
		}

		// pos consumes the chunk left to right; columns already painted
		// by an earlier region are never claimed again.
		pos := chunkStart
		for _, r := range regions {
			if pos >= chunkEnd {
				break
			}
			if r.End <= pos || r.Start >= chunkEnd {
				continue
			}

			start := r.Start
			if start < pos {
				start = pos
			}
			end := r.End
			if end > chunkEnd {
				end = chunkEnd
			}

			if start > pos {
				out = append(out, subChunk(chunk, runes, pos-chunkStart, start-chunkStart, "", false))
			}
			out = append(out, subChunk(chunk, runes, start-chunkStart, end-chunkStart, r.BackgroundColor, r.ReplaceWithX))
			pos = end
		}

		if pos < chunkEnd {
			out = append(out, subChunk(chunk, runes, pos-chunkStart, chunkEnd-chunkStart, "", false))
		}
	}

	return out
}

// anyIntersects reports whether any region overlaps the non-empty column
// range [start, end).
func anyIntersects(regions []HighlightRegion, start, end int) bool {
	if start >= end {
		return false
	}
	for _, r := range regions {
		if r.Start < end && r.End > start {
			return true
		}
	}
	return false
}

// subChunk carves the rune range [from, to) out of the source chunk. An
// override background replaces the original; masking substitutes one 'x'
// per codepoint, which preserves codepoint count but can narrow the
// display width when wide characters are covered.
func subChunk(src Span, runes []rune, from, to int, overrideBg string, mask bool) Span {
	text := string(runes[from:to])
	if mask {
		text = strings.Repeat("x", to-from)
	}

	bg := src.Bg
	if overrideBg != "" {
		bg = overrideBg
	}

	return Span{
		Text:  text,
		Fg:    src.Fg,
		Bg:    bg,
		Flags: src.Flags,
		Width: StringWidth(text),
	}
}
