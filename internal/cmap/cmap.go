// Package cmap parses ToUnicode CMap streams into char-code → UTF-8 string
// maps.
//
// Reference: Adobe Technical Note #5014 (Adobe CMap and CIDFont Files
// Specification), the beginbfchar/beginbfrange grammar.
package cmap

import (
	"strconv"
	"strings"
)

// Table is the parsed result of a ToUnicode CMap: char code → decoded UTF-8
// string. Ranges are expanded eagerly at parse time.
type Table struct {
	Name     string
	mappings map[uint32]string
}

// Lookup returns the decoded string for a char code, if mapped.
func (t *Table) Lookup(code uint32) (string, bool) {
	s, ok := t.mappings[code]
	return s, ok
}

// Len returns the number of char codes mapped.
func (t *Table) Len() int {
	return len(t.mappings)
}

// Parse parses a ToUnicode CMap stream. Parsing never fails: unknown
// sections, irregular whitespace, and malformed hex are tolerated and simply
// produce fewer mappings.
func Parse(data []byte) *Table {
	t := &Table{Name: "Unknown", mappings: make(map[uint32]string)}
	p := &tokenizer{data: data}

	for {
		tok := p.next()
		if tok == "" {
			break
		}
		switch tok {
		case "/CMapName":
			if name := p.next(); strings.HasPrefix(name, "/") {
				t.Name = strings.TrimPrefix(name, "/")
			}
		case "beginbfchar":
			parseBfChar(p, t)
		case "beginbfrange":
			parseBfRange(p, t)
		}
	}

	return t
}

// parseBfChar consumes "<src> <dst>" pairs until endbfchar.
func parseBfChar(p *tokenizer, t *Table) {
	for {
		srcTok := p.next()
		if srcTok == "" || srcTok == "endbfchar" {
			return
		}
		if !isHexToken(srcTok) {
			continue
		}
		dstTok := p.next()
		if !isHexToken(dstTok) {
			continue
		}

		code, ok := parseHexInt(srcTok)
		if !ok {
			continue
		}
		t.mappings[code] = decodeUTF16BEHex(stripHexDelims(dstTok))
	}
}

// parseBfRange consumes "<lo> <hi> <dst>" or "<lo> <hi> [<dst> ...]" triples
// until endbfrange.
func parseBfRange(p *tokenizer, t *Table) {
	for {
		loTok := p.next()
		if loTok == "" || loTok == "endbfrange" {
			return
		}
		if !isHexToken(loTok) {
			continue
		}
		hiTok := p.next()
		dstTok := p.next()
		if !isHexToken(hiTok) || dstTok == "" {
			continue
		}

		lo, ok1 := parseHexInt(loTok)
		hi, ok2 := parseHexInt(hiTok)
		if !ok1 || !ok2 || hi < lo {
			continue
		}

		if strings.HasPrefix(dstTok, "[") {
			parseBfRangeArray(dstTok, lo, hi, t)
			continue
		}
		if !isHexToken(dstTok) {
			continue
		}

		runes := []rune(decodeUTF16BEHex(stripHexDelims(dstTok)))
		if len(runes) == 0 {
			continue
		}
		start := runes[0]
		for code := lo; code <= hi; code++ {
			cp := start + rune(code-lo)
			t.mappings[code] = codePointToUTF8(cp)
		}
	}
}

// parseBfRangeArray handles the "[ <dst1> <dst2> ... ]" destination form:
// code_lo+k → dst_k for k < len(array); excess codes are left unmapped.
func parseBfRangeArray(arrTok string, lo, hi uint32, t *Table) {
	inner := strings.TrimSuffix(strings.TrimPrefix(arrTok, "["), "]")
	fields := strings.Fields(inner)
	for k, field := range fields {
		code := lo + uint32(k)
		if code > hi {
			break
		}
		if !isHexToken(field) {
			continue
		}
		t.mappings[code] = decodeUTF16BEHex(stripHexDelims(field))
	}
}

func isHexToken(tok string) bool {
	return strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">")
}

func stripHexDelims(tok string) string {
	return strings.TrimSuffix(strings.TrimPrefix(tok, "<"), ">")
}

// parseHexInt parses a "<hex>" token as a big-endian integer char code.
// Odd-length hex is malformed and rejected.
func parseHexInt(tok string) (uint32, bool) {
	hex := stripHexDelims(tok)
	if hex == "" || len(hex)%2 != 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// decodeUTF16BEHex decodes a hex string as 4-digit (2-byte) UTF-16BE code
// units, combining surrogate pairs into supplementary code points, and
// returns the UTF-8 encoding. Chunks whose value is 0 are skipped. Malformed
// trailing hex is ignored.
func decodeUTF16BEHex(hex string) string {
	var units []uint16
	for i := 0; i+4 <= len(hex); i += 4 {
		v, err := strconv.ParseUint(hex[i:i+4], 16, 32)
		if err != nil {
			continue
		}
		if v == 0 {
			continue
		}
		units = append(units, uint16(v))
	}

	var sb strings.Builder
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			hi, lo := u, units[i+1]
			cp := 0x10000 + (rune(hi)-0xD800)<<10 + (rune(lo) - 0xDC00)
			sb.WriteString(codePointToUTF8(cp))
			i++
		case u >= 0xD800 && u <= 0xDFFF:
			// Lone surrogate: not a valid code point, produces nothing.
		default:
			sb.WriteString(codePointToUTF8(rune(u)))
		}
	}
	return sb.String()
}

// codePointToUTF8 encodes a single Unicode code point as UTF-8 per RFC 3629.
// Code points at or beyond 0x110000, and lone surrogates, yield "".
func codePointToUTF8(cp rune) string {
	if cp < 0 || cp >= 0x110000 || (cp >= 0xD800 && cp <= 0xDFFF) {
		return ""
	}
	return string(cp)
}

// tokenizer is a minimal whitespace/structure tokenizer over CMap syntax:
// hex strings <...>, arrays [...], literal strings (...), names /Foo, and
// bare operator/number tokens.
type tokenizer struct {
	data []byte
	pos  int
}

func (p *tokenizer) next() string {
	for p.pos < len(p.data) && isCMapWhitespace(p.data[p.pos]) {
		p.pos++
	}
	if p.pos >= len(p.data) {
		return ""
	}

	start := p.pos
	switch p.data[p.pos] {
	case '<':
		p.pos++
		for p.pos < len(p.data) && p.data[p.pos] != '>' {
			p.pos++
		}
		if p.pos < len(p.data) {
			p.pos++
		}
		return string(p.data[start:p.pos])
	case '[':
		depth := 1
		p.pos++
		for p.pos < len(p.data) && depth > 0 {
			switch p.data[p.pos] {
			case '[':
				depth++
			case ']':
				depth--
			}
			p.pos++
		}
		return string(p.data[start:p.pos])
	case '(':
		depth := 1
		p.pos++
		for p.pos < len(p.data) && depth > 0 {
			switch p.data[p.pos] {
			case '\\':
				p.pos++
			case '(':
				depth++
			case ')':
				depth--
			}
			p.pos++
		}
		return string(p.data[start:p.pos])
	}

	if p.data[p.pos] == '/' {
		p.pos++
	}
	for p.pos < len(p.data) && !isCMapWhitespace(p.data[p.pos]) && !isCMapDelim(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

func isCMapWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\x00', '\f':
		return true
	default:
		return false
	}
}

func isCMapDelim(b byte) bool {
	switch b {
	case '<', '>', '[', ']', '(', ')':
		return true
	default:
		return false
	}
}
