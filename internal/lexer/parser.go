package lexer

import (
	"log/slog"
	"strconv"

	"github.com/cortexdoc/pdftext/cos"
)

// parser is a minimal recursive-descent reader over one indirect object's
// body bytes (everything between "N G obj" and "endobj", stream bodies
// excluded): dictionaries, arrays, names, numbers, literal/hex strings, and
// "id gen R" references.
type parser struct {
	data   []byte
	pos    int
	logger *slog.Logger
}

// parseObject parses exactly one value starting at the current position.
func (p *parser) parseObject() (cos.Object, bool) {
	p.skipWhitespace()
	if p.pos >= len(p.data) {
		return nil, false
	}

	switch c := p.data[p.pos]; {
	case c == '/':
		return p.parseName(), true
	case c == '(':
		return p.parseLiteralString(), true
	case c == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			return p.parseDictionary()
		}
		return p.parseHexString(), true
	case c == '[':
		return p.parseArray()
	case c == '+' || c == '-' || c == '.' || isDigit(c):
		return p.parseNumberOrReference()
	default:
		return p.parseKeyword()
	}
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\x00' || c == '\f' {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *parser) parseName() cos.Name {
	start := p.pos
	p.pos++
	for p.pos < len(p.data) && !isWhitespaceOrDelim(p.data[p.pos]) {
		p.pos++
	}
	return cos.Name(p.data[start+1 : p.pos])
}

func (p *parser) parseDictionary() (cos.Object, bool) {
	p.pos += 2 // consume "<<"
	dict := make(cos.Dictionary)
	for {
		p.skipWhitespace()
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, true
		}
		if p.pos >= len(p.data) {
			return dict, true
		}
		if p.data[p.pos] != '/' {
			p.pos++
			continue
		}
		key := p.parseName()
		val, ok := p.parseObject()
		if !ok {
			return dict, true
		}
		dict[key] = val
	}
}

func (p *parser) parseArray() (cos.Object, bool) {
	p.pos++ // consume '['
	var arr cos.Array
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return arr, true
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, true
		}
		val, ok := p.parseObject()
		if !ok {
			return arr, true
		}
		arr = append(arr, val)
	}
}

func (p *parser) parseLiteralString() cos.String {
	p.pos++ // consume '('
	depth := 1
	var raw []byte
	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.data) {
				break
			}
			raw = p.appendEscape(raw)
		case '(':
			depth++
			raw = append(raw, c)
			p.pos++
		case ')':
			depth--
			p.pos++
			if depth > 0 {
				raw = append(raw, c)
			}
		default:
			raw = append(raw, c)
			p.pos++
		}
	}
	return cos.String(raw)
}

func (p *parser) appendEscape(raw []byte) []byte {
	esc := p.data[p.pos]
	switch esc {
	case 'n':
		raw = append(raw, '\n')
		p.pos++
	case 'r':
		raw = append(raw, '\r')
		p.pos++
	case 't':
		raw = append(raw, '\t')
		p.pos++
	case 'b':
		raw = append(raw, '\b')
		p.pos++
	case 'f':
		raw = append(raw, '\f')
		p.pos++
	case '(', ')', '\\':
		raw = append(raw, esc)
		p.pos++
	case '\n':
		p.pos++
	case '\r':
		p.pos++
		if p.pos < len(p.data) && p.data[p.pos] == '\n' {
			p.pos++
		}
	default:
		if esc >= '0' && esc <= '7' {
			val := 0
			digits := 0
			for digits < 3 && p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '7' {
				val = val*8 + int(p.data[p.pos]-'0')
				p.pos++
				digits++
			}
			raw = append(raw, byte(val))
		} else {
			raw = append(raw, esc)
			p.pos++
		}
	}
	return raw
}

func (p *parser) parseHexString() cos.String {
	p.pos++ // consume '<'
	var digits []byte
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		c := p.data[p.pos]
		if isHexDigit(c) {
			digits = append(digits, c)
		}
		p.pos++
	}
	if p.pos < len(p.data) {
		p.pos++
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1])
	}
	return cos.String(out)
}

// parseNumberOrReference reads a number and, if it is a non-negative
// integer followed by another integer and the keyword "R", collapses the
// triple into a Reference.
func (p *parser) parseNumberOrReference() (cos.Object, bool) {
	firstStart := p.pos
	p.advanceNumber()
	firstText := string(p.data[firstStart:p.pos])

	savedPos := p.pos
	p.skipWhitespace()
	if p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		secondStart := p.pos
		p.advanceNumber()
		secondText := string(p.data[secondStart:p.pos])

		afterSecond := p.pos
		p.skipWhitespace()
		if p.pos < len(p.data) && p.data[p.pos] == 'R' && (p.pos+1 >= len(p.data) || isWhitespaceOrDelim(p.data[p.pos+1])) {
			p.pos++
			num, err1 := strconv.ParseUint(firstText, 10, 32)
			gen, err2 := strconv.ParseUint(secondText, 10, 16)
			if err1 == nil && err2 == nil {
				return cos.Reference{Num: uint32(num), Gen: uint16(gen)}, true
			}
		}
		p.pos = afterSecond
	}
	p.pos = savedPos

	v, err := strconv.ParseFloat(firstText, 64)
	if err != nil {
		return cos.Number(0), true
	}
	return cos.Number(v), true
}

func (p *parser) advanceNumber() {
	if p.pos < len(p.data) && (p.data[p.pos] == '+' || p.data[p.pos] == '-') {
		p.pos++
	}
	for p.pos < len(p.data) && (isDigit(p.data[p.pos]) || p.data[p.pos] == '.') {
		p.pos++
	}
}

func (p *parser) parseKeyword() (cos.Object, bool) {
	start := p.pos
	for p.pos < len(p.data) && !isWhitespaceOrDelim(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		p.pos++
		return nil, false
	}
	switch string(p.data[start:p.pos]) {
	case "true":
		return cos.Boolean(true), true
	case "false":
		return cos.Boolean(false), true
	case "null":
		return cos.Null{}, true
	default:
		return nil, false
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	default:
		return 0
	}
}

func isWhitespaceOrDelim(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\x00', '\f', '(', ')', '<', '>', '[', ']', '/', '%':
		return true
	default:
		return false
	}
}
