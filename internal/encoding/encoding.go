// Package encoding provides the standard single-byte PDF text encodings
// (WinAnsiEncoding, MacRomanEncoding, StandardEncoding, Identity-H/V) and the
// PostScript glyph-name table used to apply an Encoding dictionary's
// /Differences array.
//
// Reference: PDF 1.7 specification, Section 9.6.6 (Character Encoding) and
// Annex D (Character Sets and Encodings).
package encoding

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Table maps a single-byte char code to a Unicode code point.
type Table map[uint16]rune

// ByName returns the standard encoding table for a /BaseEncoding or
// /Encoding name, and whether the name was recognized.
func ByName(name string) (Table, bool) {
	switch name {
	case "WinAnsiEncoding":
		return winAnsi, true
	case "MacRomanEncoding":
		return macRoman, true
	case "StandardEncoding":
		return standard, true
	case "Identity-H", "Identity-V":
		return identity, true
	default:
		return nil, false
	}
}

var identity = buildIdentity()

func buildIdentity() Table {
	t := make(Table, 256)
	for c := 0; c < 256; c++ {
		t[uint16(c)] = rune(c)
	}
	return t
}

// winAnsi is seeded from golang.org/x/text's CP1252 charmap and then patched
// for the PDF-specific Annex D deltas: Annex D fills the five CP1252
// slots that Windows leaves undefined (0x81, 0x8D, 0x8F, 0x90, 0x9D) with
// U+2022 BULLET, where CP1252 itself leaves them unmapped.
var winAnsi = buildWinAnsi()

func buildWinAnsi() Table {
	t := make(Table, 256)
	dec := charmap.Windows1252.NewDecoder()
	for c := 0; c < 256; c++ {
		r, err := dec.Bytes([]byte{byte(c)})
		if err != nil || len(r) == 0 {
			t[uint16(c)] = '•'
			continue
		}
		ru := []rune(string(r))
		if len(ru) == 0 {
			t[uint16(c)] = '•'
			continue
		}
		t[uint16(c)] = ru[0]
	}
	for _, undefined := range []uint16{0x81, 0x8D, 0x8F, 0x90, 0x9D} {
		t[undefined] = '•'
	}
	return t
}

// macRoman is seeded directly from golang.org/x/text's Macintosh charmap,
// which matches PDF's MacRomanEncoding closely enough for text extraction.
var macRoman = buildMacRoman()

func buildMacRoman() Table {
	t := make(Table, 256)
	dec := charmap.Macintosh.NewDecoder()
	for c := 0; c < 256; c++ {
		r, err := dec.Bytes([]byte{byte(c)})
		if err != nil || len(r) == 0 {
			continue
		}
		ru := []rune(string(r))
		if len(ru) == 0 {
			continue
		}
		t[uint16(c)] = ru[0]
	}
	return t
}

// standard is Adobe StandardEncoding: ASCII-identical in 32-126, with a
// distinct (and much sparser) upper range than WinAnsi/MacRoman.
var standard = buildStandard()

func buildStandard() Table {
	t := make(Table, 256)
	for c := 32; c < 127; c++ {
		t[uint16(c)] = rune(c)
	}
	for code, cp := range standardUpperRange {
		t[code] = cp
	}
	return t
}

// standardUpperRange gives the Unicode code point for every Adobe
// StandardEncoding code in the upper range (the range where it diverges from
// ASCII). These glyph names sit outside the 95-name ASCII table GlyphNameToUnicode
// covers, so their code points are listed directly rather than resolved
// through it.
var standardUpperRange = map[uint16]rune{
	0xA1: 0x00A1, 0xA2: 0x00A2, 0xA3: 0x00A3, 0xA4: 0x2044,
	0xA5: 0x00A5, 0xA6: 0x0192, 0xA7: 0x00A7, 0xA8: 0x00A4,
	0xA9: 0x0027, 0xAA: 0x201C, 0xAB: 0x00AB,
	0xAC: 0x2039, 0xAD: 0x203A, 0xAE: 0xFB01, 0xAF: 0xFB02,
	0xB1: 0x2013, 0xB2: 0x2020, 0xB3: 0x2021, 0xB4: 0x00B7,
	0xB6: 0x00B6, 0xB7: 0x2022, 0xB8: 0x201A,
	0xB9: 0x201E, 0xBA: 0x201D, 0xBB: 0x00BB,
	0xBC: 0x2026, 0xBD: 0x2030, 0xBF: 0x00BF,
	0xC1: 0x0060, 0xC2: 0x00B4, 0xC3: 0x02C6, 0xC4: 0x02DC,
	0xC5: 0x00AF, 0xC6: 0x02D8, 0xC7: 0x02D9, 0xC8: 0x00A8,
	0xCA: 0x02DA, 0xCB: 0x00B8, 0xCD: 0x02DD, 0xCE: 0x02DB,
	0xCF: 0x02C7, 0xD0: 0x2014, 0xE1: 0x00C6, 0xE3: 0x00AA,
	0xE8: 0x0141, 0xE9: 0x00D8, 0xEA: 0x0152, 0xEB: 0x00BA,
	0xF1: 0x00E6, 0xF5: 0x0131, 0xF8: 0x0142, 0xF9: 0x00F8,
	0xFA: 0x0153, 0xFB: 0x00DF,
}

// GlyphNameToUnicode resolves a PostScript glyph name to a Unicode code
// point: the 95 standard ASCII names plus the "uni####" 4-hex-digit
// convention. Unrecognized names report ok=false.
func GlyphNameToUnicode(name string) (rune, bool) {
	if cp, ok := asciiGlyphNames[name]; ok {
		return cp, true
	}
	if strings.HasPrefix(name, "uni") && len(name) == 7 {
		if v, err := strconv.ParseUint(name[3:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	return 0, false
}

// asciiGlyphNames is the standard PostScript glyph-name table for the 95
// printable ASCII characters (space through asciitilde).
var asciiGlyphNames = map[string]rune{
	"space": 0x20, "exclam": 0x21, "quotedbl": 0x22, "numbersign": 0x23,
	"dollar": 0x24, "percent": 0x25, "ampersand": 0x26, "quotesingle": 0x27,
	"parenleft": 0x28, "parenright": 0x29, "asterisk": 0x2A, "plus": 0x2B,
	"comma": 0x2C, "hyphen": 0x2D, "period": 0x2E, "slash": 0x2F,
	"zero": 0x30, "one": 0x31, "two": 0x32, "three": 0x33, "four": 0x34,
	"five": 0x35, "six": 0x36, "seven": 0x37, "eight": 0x38, "nine": 0x39,
	"colon": 0x3A, "semicolon": 0x3B, "less": 0x3C, "equal": 0x3D,
	"greater": 0x3E, "question": 0x3F, "at": 0x40,
	"A": 0x41, "B": 0x42, "C": 0x43, "D": 0x44, "E": 0x45, "F": 0x46,
	"G": 0x47, "H": 0x48, "I": 0x49, "J": 0x4A, "K": 0x4B, "L": 0x4C,
	"M": 0x4D, "N": 0x4E, "O": 0x4F, "P": 0x50, "Q": 0x51, "R": 0x52,
	"S": 0x53, "T": 0x54, "U": 0x55, "V": 0x56, "W": 0x57, "X": 0x58,
	"Y": 0x59, "Z": 0x5A,
	"bracketleft": 0x5B, "backslash": 0x5C, "bracketright": 0x5D,
	"asciicircum": 0x5E, "underscore": 0x5F, "grave": 0x60,
	"a": 0x61, "b": 0x62, "c": 0x63, "d": 0x64, "e": 0x65, "f": 0x66,
	"g": 0x67, "h": 0x68, "i": 0x69, "j": 0x6A, "k": 0x6B, "l": 0x6C,
	"m": 0x6D, "n": 0x6E, "o": 0x6F, "p": 0x70, "q": 0x71, "r": 0x72,
	"s": 0x73, "t": 0x74, "u": 0x75, "v": 0x76, "w": 0x77, "x": 0x78,
	"y": 0x79, "z": 0x7A,
	"braceleft": 0x7B, "bar": 0x7C, "braceright": 0x7D, "asciitilde": 0x7E,
}
