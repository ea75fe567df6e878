// Package extract implements the Extraction Coordinator: the public entry
// point that wires the object resolver, font registry, and content
// tokenizer together to turn a PDF's resolved object graph into text.
package extract

import (
	"log/slog"
	"os"

	"github.com/cortexdoc/pdftext/cos"
	"github.com/cortexdoc/pdftext/internal/content"
	"github.com/cortexdoc/pdftext/internal/fonts"
	"github.com/cortexdoc/pdftext/internal/resolver"
	"github.com/cortexdoc/pdftext/logging"
)

// Options configures one extraction run.
type Options struct {
	// Divider separates fallback-path stream emissions and the text of a
	// page's individual content streams. Defaults to "\n" when empty. Line
	// breaks inside one content stream are always "\n", and pages are always
	// separated by "\n\n"; Divider does not change either.
	Divider string

	// Debug enables unstructured diagnostic logging to stderr. Content and
	// format are unspecified and not part of the contract.
	Debug bool
}

func (o Options) divider() string {
	if o.Divider == "" {
		return "\n"
	}
	return o.Divider
}

// Extract runs the full pipeline against an already-lexed, already-unfiltered
// sequence of top-level PDF objects and returns the extracted text. It never
// returns an error: every failure mode degrades to an empty or partial
// result, per the best-effort contract.
func Extract(docs []cos.Object, opts Options) string {
	if opts.Debug {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	logger := logging.Logger().With(slog.String("component", "extract"))

	table := resolver.BuildTable(docs)
	table.ExpandObjectStreams()
	registry := fonts.BuildRegistry(table)

	pageIDs := pagesInObjectOrder(table)
	logger.Debug("enumerated pages", slog.Int("count", len(pageIDs)))

	var sb []byte
	for _, id := range pageIDs {
		page, _ := table.Resolve(id)
		dict, ok := page.(cos.Dictionary)
		if !ok {
			continue
		}
		pageText := extractPage(table, registry, dict, opts.divider())
		if pageText == "" {
			continue
		}
		sb = append(sb, pageText...)
		sb = append(sb, '\n', '\n')
	}

	if len(sb) > 0 {
		return string(sb)
	}

	logger.Debug("no page produced text, entering fallback path")
	return fallback(table, registry, opts.divider())
}

// pagesInObjectOrder returns the object ids of every dictionary whose /Type
// is /Page, sorted by id, matching the coordinator's documented
// object-id-order iteration.
func pagesInObjectOrder(table *resolver.Table) []uint32 {
	var ids []uint32
	for id, obj := range table.All() {
		dict, ok := obj.(cos.Dictionary)
		if !ok {
			continue
		}
		if typ, ok := dict.GetName("Type"); ok && typ == "Page" {
			ids = append(ids, id)
		}
	}
	sortUint32s(ids)
	return ids
}

func sortUint32s(ids []uint32) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// pageScope implements content.Scope over one page's own Resources/Font
// dictionary. It does not search the rest of the document: a name missing
// from that dictionary (e.g. an inherited resource, since the page tree is
// not walked) is passed to Registry.Lookup unchanged, and a page with no
// Font dictionary resolves no fonts at all.
type pageScope struct {
	registry *fonts.Registry
	fontDict cos.Dictionary
}

func (s *pageScope) Font(name string) *fonts.Info {
	if s.fontDict == nil {
		return nil
	}
	return s.registry.Lookup(s.fontDict, name)
}

func extractPage(table *resolver.Table, registry *fonts.Registry, page cos.Dictionary, divider string) string {
	resources, _ := table.ResolveIfRef(page.Get("Resources")).(cos.Dictionary)
	var fontDict cos.Dictionary
	if resources != nil {
		fontDict, _ = table.ResolveIfRef(resources.Get("Font")).(cos.Dictionary)
	}
	scope := &pageScope{registry: registry, fontDict: fontDict}

	streams := resolveContents(table, page.Get("Contents"))

	var parts []string
	for _, data := range streams {
		text := content.Tokenize(data, scope)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return joinNonEmpty(parts, divider)
}

// resolveContents resolves Contents to a list of stream byte buffers: a
// single stream, an array of streams, each possibly behind a reference.
func resolveContents(table *resolver.Table, contentsObj cos.Object) [][]byte {
	resolved := table.ResolveIfRef(contentsObj)
	switch v := resolved.(type) {
	case *cos.Stream:
		return [][]byte{v.Data}
	case cos.Array:
		var out [][]byte
		for _, elem := range v {
			if stream, ok := table.ResolveIfRef(elem).(*cos.Stream); ok {
				out = append(out, stream.Data)
			}
		}
		return out
	default:
		return nil
	}
}

func joinNonEmpty(parts []string, sep string) string {
	var sb []byte
	for i, p := range parts {
		if i > 0 {
			sb = append(sb, sep...)
		}
		sb = append(sb, p...)
	}
	return string(sb)
}

// nonTextStreamSubtypes are font program subtypes the fallback path must
// skip, per §4.6 step 6, so it doesn't try to tokenize a font file as a
// content stream.
var nonTextStreamSubtypes = map[cos.Name]bool{
	"Type1":        true,
	"TrueType":     true,
	"CIDFontType2": true,
	"OpenType":     true,
}

// fallback implements §4.6 step 6: when no page produced text, scan every
// stream that isn't XRef/ObjStm/XObject/Image/a font program for a
// text-operator signature and tokenize it directly against the global
// registry.
func fallback(table *resolver.Table, registry *fonts.Registry, divider string) string {
	globalScope := &globalFontScope{registry: registry, table: table}

	ids := make([]uint32, 0, len(table.All()))
	for id := range table.All() {
		ids = append(ids, id)
	}
	sortUint32s(ids)

	var parts []string
	for _, id := range ids {
		obj, _ := table.Resolve(id)
		stream, ok := obj.(*cos.Stream)
		if !ok {
			continue
		}
		if isExcludedStream(stream) {
			continue
		}
		if !looksLikeTextStream(stream.Data) {
			continue
		}
		if text := content.Tokenize(stream.Data, globalScope); text != "" {
			parts = append(parts, text)
		}
	}
	return joinNonEmpty(parts, divider)
}

func isExcludedStream(stream *cos.Stream) bool {
	if typ, ok := stream.Dict.GetName("Type"); ok {
		if typ == "XRef" || typ == "ObjStm" || typ == "XObject" {
			return true
		}
	}
	if subtype, ok := stream.Dict.GetName("Subtype"); ok {
		if subtype == "Image" || nonTextStreamSubtypes[subtype] {
			return true
		}
	}
	return false
}

func looksLikeTextStream(data []byte) bool {
	if containsOperatorPair(data, "BT", "ET") {
		return true
	}
	return containsToken(data, "Tj") || containsToken(data, "TJ")
}

// containsOperatorPair reports whether both tokens appear anywhere in data,
// in either order; a precise nesting check is unnecessary for a signature
// scan whose only job is to decide whether to attempt tokenization at all.
func containsOperatorPair(data []byte, a, b string) bool {
	return containsToken(data, a) && containsToken(data, b)
}

func containsToken(data []byte, tok string) bool {
	return indexToken(data, tok) >= 0
}

// indexToken finds tok as a whitespace/delimiter-bounded token, avoiding a
// false hit inside a longer operator or a string literal's literal bytes is
// an acceptable false-positive: the fallback path only uses this to decide
// whether a stream is worth tokenizing, not to extract text itself.
func indexToken(data []byte, tok string) int {
	n := len(tok)
	for i := 0; i+n <= len(data); i++ {
		if string(data[i:i+n]) != tok {
			continue
		}
		beforeOK := i == 0 || isBoundary(data[i-1])
		afterOK := i+n == len(data) || isBoundary(data[i+n])
		if beforeOK && afterOK {
			return i
		}
	}
	return -1
}

func isBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '(', ')', '[', ']', '<', '>', '/':
		return true
	default:
		return false
	}
}

// globalFontScope implements content.Scope over the document-wide registry
// directly, used by the fallback path which has no page Resources to scope
// against. It merges every Resources/Font-shaped dictionary found anywhere
// in the object table into one name→font mapping, so a stray content stream
// can still resolve the same /F1 a page's Resources would have given it.
type globalFontScope struct {
	registry *fonts.Registry
	table    *resolver.Table
	merged   cos.Dictionary
	built    bool
}

func (s *globalFontScope) Font(name string) *fonts.Info {
	if !s.built {
		s.merged = make(cos.Dictionary)

		// Walk dictionary-holding object ids in sorted order (the same
		// pattern pagesInObjectOrder/fallback use) so that, when two
		// dictionaries in the document reuse the same resource-name key for
		// different font objects, which one ends up in merged is
		// deterministic across runs rather than dependent on Go's
		// randomized map iteration order — required by the "running
		// extraction twice yields identical output" invariant.
		ids := make([]uint32, 0, len(s.table.All()))
		for id := range s.table.All() {
			ids = append(ids, id)
		}
		sortUint32s(ids)

		for _, id := range ids {
			obj, _ := s.table.Resolve(id)
			dict, ok := obj.(cos.Dictionary)
			if !ok {
				continue
			}
			s.mergeFontRefs(dict)
		}
		s.built = true
	}
	return s.registry.Lookup(s.merged, name)
}

// mergeFontRefs adds every Reference in dict that points at a Font
// dictionary to s.merged, iterating dict's own keys in sorted order so a
// key collision within a single dictionary is resolved deterministically
// too.
func (s *globalFontScope) mergeFontRefs(dict cos.Dictionary) {
	keys := make([]cos.Name, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	sortNames(keys)

	for _, key := range keys {
		ref, ok := dict[key].(cos.Reference)
		if !ok {
			continue
		}
		target, ok := s.table.Resolve(ref.Num)
		if !ok {
			continue
		}
		targetDict, ok := target.(cos.Dictionary)
		if !ok {
			continue
		}
		if typ, ok := targetDict.GetName("Type"); ok && typ == "Font" {
			s.merged[key] = dict[key]
		}
	}
}

func sortNames(names []cos.Name) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}
