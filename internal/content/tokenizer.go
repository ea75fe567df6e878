// Package content tokenizes a decoded PDF content-stream byte buffer and
// emits the text its text-showing operators produce, honoring the handful
// of text-state operators that affect spacing and line breaks.
//
// Reference: PDF 1.7 specification, Section 9.4 (Text Objects) and Section
// 7.3.4 (String Objects) for the string lexical rules.
package content

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/cortexdoc/pdftext/internal/fonts"
	"github.com/cortexdoc/pdftext/logging"
	"github.com/rivo/uniseg"
)

// Scope resolves a resource-dictionary font name to its decoder: the page's
// own Font scope first, falling back to the document-wide registry for the
// fallback extraction path (§4.6 step 6), which has no page scope at all.
type Scope interface {
	Font(name string) *fonts.Info
}

// tjGapThreshold is the TJ numeric-adjustment value below which a word gap
// is assumed and a space is emitted (§4.5).
const tjGapThreshold = -80

// Tokenize lexes data as a content stream and returns the decoded text it
// produces. Each emitted string independently passes the printable filter
// before being appended, so a stray binary run doesn't poison a page that is
// otherwise readable text.
func Tokenize(data []byte, scope Scope) string {
	logger := logging.Logger().With(slog.String("component", "content"))

	t := &tokenizer{data: data}
	var out strings.Builder
	var currentFont *fonts.Info
	pendingBreak := false

	flush := func(s string) {
		if s == "" || !isPrintableEnough(s) {
			return
		}
		if pendingBreak && out.Len() > 0 {
			out.WriteString("\n")
		}
		pendingBreak = false
		out.WriteString(s)
	}

	var operands []token
	for {
		tok, ok := t.next()
		if !ok {
			break
		}
		if tok.isOperand() {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "ET":
			pendingBreak = true
		case "Td", "TD", "Tm", "T*":
			pendingBreak = true
		case "Tf":
			if len(operands) >= 2 && operands[len(operands)-2].kind == tokName {
				name := operands[len(operands)-2].text
				currentFont = resolveFont(scope, name)
				if currentFont == nil {
					logger.Debug("Tf referenced unknown font", slog.String("name", name))
				}
			}
		case "Tj":
			if len(operands) >= 1 {
				flush(decodeOperand(operands[len(operands)-1], currentFont))
			}
		case "'", "\"":
			pendingBreak = true
			if len(operands) >= 1 {
				flush(decodeOperand(operands[len(operands)-1], currentFont))
			}
		case "TJ":
			if len(operands) >= 1 {
				flush(decodeTJArray(operands[len(operands)-1], currentFont))
			}
		}
		operands = operands[:0]
	}

	return out.String()
}

func resolveFont(scope Scope, name string) *fonts.Info {
	if scope == nil {
		return nil
	}
	return scope.Font(name)
}

func decodeOperand(tok token, font *fonts.Info) string {
	if tok.kind != tokString || font == nil {
		return ""
	}
	return font.DecodeBytes(tok.raw)
}

// decodeTJArray concatenates the decoded strings in a TJ array, inserting a
// space wherever a numeric adjustment is below tjGapThreshold.
func decodeTJArray(arrTok token, font *fonts.Info) string {
	if arrTok.kind != tokArray {
		return ""
	}
	var sb strings.Builder
	p := &tokenizer{data: arrTok.raw}
	for {
		el, ok := p.next()
		if !ok {
			break
		}
		switch el.kind {
		case tokString:
			if font != nil {
				sb.WriteString(font.DecodeBytes(el.raw))
			}
		case tokNumber:
			if v, err := strconv.ParseFloat(el.text, 64); err == nil && v < tjGapThreshold {
				sb.WriteString(" ")
			}
		}
	}
	return sb.String()
}

// isPrintableEnough implements the §4.5 printable filter: drop a decoded
// string if fewer than half its characters fall in [32,127) ∪ {9,10,13}.
// Grapheme clusters (not raw runes) are the unit of "character" so a single
// multi-byte glyph like an accented letter counts once, not per code point.
func isPrintableEnough(s string) bool {
	total := 0
	printable := 0

	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		total++
		cluster := gr.Str()
		if len(cluster) == 1 {
			b := cluster[0]
			if (b >= 32 && b < 127) || b == 9 || b == 10 || b == 13 {
				printable++
			}
			continue
		}
		// Any multi-byte cluster is a decoded, non-ASCII character: count it
		// as printable rather than binary noise.
		printable++
	}
	if total == 0 {
		return true
	}
	return printable*2 >= total
}
