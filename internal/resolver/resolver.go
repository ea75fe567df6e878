// Package resolver builds the flat object table used during extraction and
// resolves indirect references against it.
//
// Reference: PDF 1.7 specification, Section 7.3.10 (Indirect References) and
// Section 7.5.7 (Object Streams).
package resolver

import (
	"bytes"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/cortexdoc/pdftext/cos"
	"github.com/cortexdoc/pdftext/logging"
)

// Table is the flat id-indexed map of every indirect object body seen in a
// document, plus the handful of operations extraction needs against it.
//
// A Table is built once per extraction and never mutated concurrently;
// ExpandObjectStreams is the one step that adds entries after construction.
type Table struct {
	objects map[uint32]cos.Object
}

// BuildTable flattens the top-level Indirect envelopes in docs into an
// id-indexed table, recursing into arrays, dictionaries, and streams so that
// nested Indirect values are registered too.
//
// The walk never follows Reference edges, only Indirect envelopes, so it
// always terminates without cycle detection.
func BuildTable(docs []cos.Object) *Table {
	t := &Table{objects: make(map[uint32]cos.Object)}
	for _, doc := range docs {
		t.register(doc)
	}
	return t
}

func (t *Table) register(obj cos.Object) {
	switch v := obj.(type) {
	case *cos.Indirect:
		t.objects[v.Num] = v.Value
		t.register(v.Value)
	case cos.Array:
		for _, elem := range v {
			t.register(elem)
		}
	case cos.Dictionary:
		for _, elem := range v {
			t.register(elem)
		}
	case *cos.Stream:
		for _, elem := range v.Dict {
			t.register(elem)
		}
	}
}

// Resolve looks up the body registered for an indirect object id.
func (t *Table) Resolve(num uint32) (cos.Object, bool) {
	obj, ok := t.objects[num]
	return obj, ok
}

// ResolveIfRef collapses at most one Reference level. A non-Reference value
// passes through unchanged; an unresolvable Reference degrades to Null
// rather than aborting the caller.
func (t *Table) ResolveIfRef(obj cos.Object) cos.Object {
	ref, ok := obj.(cos.Reference)
	if !ok {
		return obj
	}
	resolved, ok := t.Resolve(ref.Num)
	if !ok {
		return cos.Null{}
	}
	return resolved
}

// All returns the table's id → object map itself, not a copy: entries that
// ExpandObjectStreams adds later appear in it too.
func (t *Table) All() map[uint32]cos.Object {
	return t.objects
}

var contentsRefPattern = regexp.MustCompile(`/Contents\s+(\d+)\s+(\d+)\s+R`)

// ExpandObjectStreams materializes a minimal synthetic Page/Font dictionary
// for every object embedded in a PDF 1.5+ Object Stream (ObjStm), so the
// coordinator can still find pages and fonts that a PDF keeps compressed.
//
// This does not re-lex the embedded object bodies into full Dictionary
// values (§9 flags that as a known simplification): each body is scanned for
// literal "/Type /Page" or "/Type /Font" markers and, on a hit, for the
// handful of fields the coordinator actually needs.
func (t *Table) ExpandObjectStreams() {
	logger := logging.Logger().With(slog.String("component", "resolver"))

	// Snapshot ids before mutating the map while iterating.
	ids := make([]uint32, 0, len(t.objects))
	for id := range t.objects {
		ids = append(ids, id)
	}

	for _, id := range ids {
		obj := t.objects[id]
		stream, ok := asObjStm(obj)
		if !ok {
			continue
		}

		n, ok1 := stream.Dict.GetInt("N")
		first, ok2 := stream.Dict.GetInt("First")
		if !ok1 || !ok2 || n <= 0 || first < 0 {
			logger.Debug("ObjStm missing N/First", slog.Any("objStm", id))
			continue
		}

		header := string(stream.Data)
		if int(first) > len(header) {
			continue
		}
		header = header[:first]
		fields := strings.Fields(header)
		if len(fields) < int(n)*2 {
			logger.Debug("ObjStm header shorter than N pairs", slog.Any("objStm", id))
			continue
		}

		type entry struct {
			id     uint32
			offset int
		}
		entries := make([]entry, 0, n)
		for i := 0; i < int(n); i++ {
			objID, err1 := strconv.ParseUint(fields[2*i], 10, 32)
			offset, err2 := strconv.Atoi(fields[2*i+1])
			if err1 != nil || err2 != nil {
				continue
			}
			entries = append(entries, entry{id: uint32(objID), offset: offset})
		}

		for i, e := range entries {
			start := int(first) + e.offset
			end := len(stream.Data)
			if i+1 < len(entries) {
				end = int(first) + entries[i+1].offset
			}
			if start < 0 || start > len(stream.Data) || end > len(stream.Data) || end < start {
				continue
			}
			body := stream.Data[start:end]
			t.registerEmbedded(e.id, body, logger)
		}
	}
}

func asObjStm(obj cos.Object) (*cos.Stream, bool) {
	stream, ok := obj.(*cos.Stream)
	if !ok {
		return nil, false
	}
	typ, ok := stream.Dict.GetName("Type")
	if !ok || typ != "ObjStm" {
		return nil, false
	}
	return stream, true
}

func (t *Table) registerEmbedded(id uint32, body []byte, logger *slog.Logger) {
	if bytes.Contains(body, []byte("/Type /Page")) || bytes.Contains(body, []byte("/Type/Page")) {
		dict := cos.Dictionary{"Type": cos.Name("Page")}
		if m := contentsRefPattern.FindSubmatch(body); m != nil {
			if num, err := strconv.ParseUint(string(m[1]), 10, 32); err == nil {
				dict["Contents"] = cos.Reference{Num: uint32(num)}
			}
		}
		t.objects[id] = dict
		logger.Debug("materialized embedded page", slog.Any("id", id))
		return
	}

	if bytes.Contains(body, []byte("/Type /Font")) || bytes.Contains(body, []byte("/Type/Font")) {
		dict := cos.Dictionary{"Type": cos.Name("Font")}
		if m := toUnicodeRefPattern.FindSubmatch(body); m != nil {
			if num, err := strconv.ParseUint(string(m[1]), 10, 32); err == nil {
				dict["ToUnicode"] = cos.Reference{Num: uint32(num)}
			}
		}
		t.objects[id] = dict
		logger.Debug("materialized embedded font", slog.Any("id", id))
	}
}

var toUnicodeRefPattern = regexp.MustCompile(`/ToUnicode\s+(\d+)\s+(\d+)\s+R`)
