// Package lexer is the external-collaborator PDF lexer the core engine
// assumes as input: it turns raw PDF file bytes into the ordered sequence of
// top-level cos.Object values (almost always cos.Indirect envelopes) that
// extract.Extract consumes.
//
// It is intentionally narrow. It locates "N G obj ... endobj" bodies by
// scanning rather than walking the xref table, and applies FlateDecode (the
// overwhelming majority case in the wild) to stream bodies itself; any other
// filter is left encoded; the resolver will still materialize the object but
// its stream body will not decode into text. This mirrors the module's own
// best-effort extraction contract: a CLI that cannot fully parse a PDF
// degrades to a partial result rather than failing outright.
package lexer

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/cortexdoc/pdftext/cos"
	"github.com/cortexdoc/pdftext/logging"
)

// indirectObjectHeader matches the start of a top-level indirect object:
// "<num> <gen> obj".
var indirectObjectHeader = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)

// ParseDocument scans data for every top-level indirect object and parses
// its body, returning one cos.Indirect per object found. Objects whose body
// fails to parse are skipped (logged at Debug) rather than aborting the
// whole scan.
func ParseDocument(data []byte) []cos.Object {
	logger := logging.Logger().With(slog.String("component", "lexer"))

	var docs []cos.Object
	matches := indirectObjectHeader.FindAllSubmatchIndex(data, -1)
	for _, m := range matches {
		num, err1 := strconv.ParseUint(string(data[m[2]:m[3]]), 10, 32)
		gen, err2 := strconv.ParseUint(string(data[m[4]:m[5]]), 10, 16)
		if err1 != nil || err2 != nil {
			continue
		}

		bodyStart := m[1]
		bodyEnd := findEndobj(data, bodyStart)
		if bodyEnd < 0 {
			logger.Debug("object missing endobj", slog.Uint64("num", num))
			continue
		}

		p := &parser{data: data[bodyStart:bodyEnd], logger: logger}
		value, ok := p.parseObject()
		if !ok {
			logger.Debug("failed to parse object body", slog.Uint64("num", num))
			continue
		}

		if stream, isDict := value.(cos.Dictionary); isDict {
			if s, ok := p.tryParseStream(data, bodyStart, bodyEnd, stream); ok {
				value = s
			}
		}

		docs = append(docs, &cos.Indirect{Num: uint32(num), Gen: uint16(gen), Value: value})
	}
	return docs
}

var endobjPattern = regexp.MustCompile(`endobj\b`)

func findEndobj(data []byte, from int) int {
	loc := endobjPattern.FindIndex(data[from:])
	if loc == nil {
		return -1
	}
	return from + loc[0]
}

// tryParseStream checks for a "stream" keyword following a dictionary body
// and, if present, re-slices the original buffer to capture the raw bytes
// up to "endstream", applying FlateDecode when that is the declared filter.
func (p *parser) tryParseStream(data []byte, bodyStart, bodyEnd int, dict cos.Dictionary) (*cos.Stream, bool) {
	streamKeyword := []byte("stream")
	rel := bytes.Index(data[bodyStart:bodyEnd], streamKeyword)
	if rel < 0 {
		return nil, false
	}
	start := bodyStart + rel + len(streamKeyword)
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	endstreamPattern := regexp.MustCompile(`endstream`)
	loc := endstreamPattern.FindIndex(data[start:])
	if loc == nil {
		return nil, false
	}
	raw := data[start : start+loc[0]]

	if length, ok := dict.GetInt("Length"); ok && int(length) <= len(raw) && int(length) >= 0 {
		raw = raw[:length]
	}

	decoded := raw
	if filterName, ok := dict.GetName("Filter"); ok && filterName == "FlateDecode" {
		if out, err := inflate(raw); err == nil {
			decoded = out
		} else {
			p.logger.Debug("FlateDecode failed, keeping raw bytes", slog.String("err", err.Error()))
		}
	}

	return &cos.Stream{Dict: dict, Data: decoded}, true
}

func inflate(raw []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open zlib stream: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out, nil
}
