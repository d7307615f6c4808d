// Package glyph turns text into bitmaps for one 8x8 slice of the cube.
package glyph

import (
	"strings"
	"unicode"
)

// Glyph is one character as eight rows: index z from the bottom layer up,
// MSB is x=0 on the left.
type Glyph [8]byte

const (
	fontWidth  = 5
	fontHeight = 7
)

// font5x7 stores each character as five columns, left to right. Bit r of a
// column is font row r counted from the top.
var font5x7 = map[rune][fontWidth]byte{
	'A': {0x7E, 0x09, 0x09, 0x09, 0x7E},
	'B': {0x7F, 0x49, 0x49, 0x49, 0x36},
	'C': {0x3E, 0x41, 0x41, 0x41, 0x22},
	'D': {0x7F, 0x41, 0x41, 0x22, 0x1C},
	'E': {0x7F, 0x49, 0x49, 0x49, 0x41},
	'F': {0x7F, 0x09, 0x09, 0x09, 0x01},
	'G': {0x3E, 0x41, 0x49, 0x49, 0x3A},
	'H': {0x7F, 0x08, 0x08, 0x08, 0x7F},
	'I': {0x00, 0x41, 0x7F, 0x41, 0x00},
	'J': {0x20, 0x40, 0x41, 0x3F, 0x01},
	'K': {0x7F, 0x08, 0x14, 0x22, 0x41},
	'L': {0x7F, 0x40, 0x40, 0x40, 0x40},
	'M': {0x7F, 0x02, 0x0C, 0x02, 0x7F},
	'N': {0x7F, 0x04, 0x08, 0x10, 0x7F},
	'O': {0x3E, 0x41, 0x41, 0x41, 0x3E},
	'P': {0x7F, 0x09, 0x09, 0x09, 0x06},
	'Q': {0x3E, 0x41, 0x51, 0x21, 0x5E},
	'R': {0x7F, 0x09, 0x19, 0x29, 0x46},
	'S': {0x26, 0x49, 0x49, 0x49, 0x32},
	'T': {0x01, 0x01, 0x7F, 0x01, 0x01},
	'U': {0x3F, 0x40, 0x40, 0x40, 0x3F},
	'V': {0x1F, 0x20, 0x40, 0x20, 0x1F},
	'W': {0x3F, 0x40, 0x30, 0x40, 0x3F},
	'X': {0x63, 0x14, 0x08, 0x14, 0x63},
	'Y': {0x07, 0x08, 0x70, 0x08, 0x07},
	'Z': {0x61, 0x51, 0x49, 0x45, 0x43},
	'0': {0x3E, 0x51, 0x49, 0x45, 0x3E},
	'1': {0x00, 0x42, 0x7F, 0x40, 0x00},
	'2': {0x42, 0x61, 0x51, 0x49, 0x46},
	'3': {0x21, 0x41, 0x45, 0x4B, 0x31},
	'4': {0x18, 0x14, 0x12, 0x7F, 0x10},
	'5': {0x27, 0x45, 0x45, 0x45, 0x39},
	'6': {0x3C, 0x4A, 0x49, 0x49, 0x30},
	'7': {0x01, 0x71, 0x09, 0x05, 0x03},
	'8': {0x36, 0x49, 0x49, 0x49, 0x36},
	'9': {0x06, 0x49, 0x49, 0x29, 0x1E},
	' ': {0x00, 0x00, 0x00, 0x00, 0x00},
	'!': {0x00, 0x00, 0x5F, 0x00, 0x00},
	'.': {0x00, 0x60, 0x60, 0x00, 0x00},
	',': {0x00, 0x50, 0x30, 0x00, 0x00},
	':': {0x00, 0x36, 0x36, 0x00, 0x00},
	'-': {0x08, 0x08, 0x08, 0x08, 0x08},
	'+': {0x08, 0x08, 0x3E, 0x08, 0x08},
}

var glyphs = func() map[rune]Glyph {
	m := make(map[rune]Glyph, len(font5x7))
	for r, cols := range font5x7 {
		m[r] = convert(cols)
	}
	return m
}()

// convert places a 5x7 character in the top seven layers, one column in
// from the left.
func convert(cols [fontWidth]byte) Glyph {
	var g Glyph
	for c, col := range cols {
		for r := 0; r < fontHeight; r++ {
			if col&(1<<uint(r)) != 0 {
				g[7-r] |= 0x80 >> uint(c+1)
			}
		}
	}
	return g
}

// For returns the glyph of r. Letters are upper-cased; anything the font
// lacks is blank.
func For(r rune) Glyph {
	return glyphs[unicode.ToUpper(r)]
}

func Text(s string) []Glyph {
	out := make([]Glyph, 0, len(s))
	for _, r := range strings.ToUpper(s) {
		out = append(out, For(r))
	}
	return out
}

// Has reports whether the font draws r.
func Has(r rune) bool {
	_, ok := glyphs[unicode.ToUpper(r)]
	return ok
}
