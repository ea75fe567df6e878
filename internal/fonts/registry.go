package fonts

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cortexdoc/pdftext/cos"
	"github.com/cortexdoc/pdftext/internal/cmap"
	"github.com/cortexdoc/pdftext/internal/encoding"
	"github.com/cortexdoc/pdftext/internal/resolver"
	"github.com/cortexdoc/pdftext/internal/sfnt"
	"github.com/cortexdoc/pdftext/logging"
)

// Info holds everything the content tokenizer needs to decode one font's
// glyph codes into text.
//
// Decode applies the signals in a fixed priority order: ToUnicode first,
// since it is the author's explicit intent; embedded cmap next; simple
// encoding table last.
type Info struct {
	Name             string
	simpleEncoding   encoding.Table
	toUnicode        *cmap.Table
	embeddedGlyphMap map[uint16]rune
}

// Decode resolves a single character/glyph code to its decoded string.
func (i *Info) Decode(code uint32) string {
	if i.toUnicode != nil {
		if s, ok := i.toUnicode.Lookup(code); ok {
			return s
		}
	}
	if i.embeddedGlyphMap != nil {
		if r, ok := i.embeddedGlyphMap[uint16(code)]; ok {
			return string(r)
		}
	}
	if i.simpleEncoding != nil {
		if r, ok := i.simpleEncoding[uint16(code)]; ok {
			return string(r)
		}
	}
	if code >= 32 && code < 127 {
		return string(rune(code))
	}
	return ""
}

// DecodeBytes decodes a raw glyph-byte string without a fixed code width:
// at each position, the 2-byte big-endian code is tried against ToUnicode
// first; on a hit it advances 2 bytes, otherwise it decodes the single byte
// and advances 1. This implements simple/CID dual-width decoding without an
// explicit per-font width flag.
func (i *Info) DecodeBytes(raw []byte) string {
	var sb strings.Builder
	for k := 0; k < len(raw); {
		if i.toUnicode != nil && k+1 < len(raw) {
			code2 := uint32(raw[k])<<8 | uint32(raw[k+1])
			if s, ok := i.toUnicode.Lookup(code2); ok {
				sb.WriteString(s)
				k += 2
				continue
			}
		}
		sb.WriteString(i.Decode(uint32(raw[k])))
		k++
	}
	return sb.String()
}

// Registry builds and caches Info for every distinct font object this
// document's pages reference, keyed by resolved object id rather than
// resource-dictionary name: PDF generators routinely restart "/F1, /F2, ..."
// numbering per page, so the same name can point at a different font object
// on every page.
type Registry struct {
	table *resolver.Table
	infos map[string]*Info
}

// BuildRegistry constructs an empty registry bound to a resolved object
// table. Fonts are built lazily the first time a page asks for a name, since
// most documents only use a handful of the fonts embedded across all pages.
func BuildRegistry(table *resolver.Table) *Registry {
	return &Registry{table: table, infos: make(map[string]*Info)}
}

// Lookup returns the Info for a resource-dictionary font name, given the
// Font subdictionary from the current page's Resources, building and
// caching it on first use.
//
// The cache key is the resolved font object's indirect id (synthetic key
// "id:N"), not the bare resource name: two pages can both call this with
// name "F1" while pointing at two entirely different font objects, and
// caching by name alone would hand page two back page one's decoder. A
// font defined inline, with no indirect id of its own, falls back to the
// resource name as its key.
func (r *Registry) Lookup(fontsDict cos.Dictionary, name string) *Info {
	ref := fontsDict.Get(cos.Name(name))
	key := fontCacheKey(ref, name)
	if info, ok := r.infos[key]; ok {
		return info
	}

	logger := logging.Logger().With(slog.String("component", "fonts"), slog.String("font", name))

	fontObj := r.table.ResolveIfRef(ref)
	fontDict, ok := fontObj.(cos.Dictionary)
	if !ok {
		logger.Debug("font resource missing or not a dictionary")
		info := &Info{Name: name}
		r.infos[key] = info
		return info
	}

	info := r.build(fontDict, logger)
	r.infos[key] = info
	return info
}

// fontCacheKey resolves the stable cache identity for a font resource entry.
func fontCacheKey(ref cos.Object, name string) string {
	if indirect, ok := ref.(cos.Reference); ok {
		return fmt.Sprintf("id:%d", indirect.Num)
	}
	return "name:" + name
}

func (r *Registry) build(fontDict cos.Dictionary, logger *slog.Logger) *Info {
	info := &Info{}

	if base, ok := fontDict.GetName("BaseFont"); ok {
		info.Name = string(base)
	}

	encodingName, differences := r.resolveEncoding(fontDict, logger)
	if differences != nil {
		info.simpleEncoding = differences
	} else if encodingName != "" {
		if table, ok := encoding.ByName(encodingName); ok {
			info.simpleEncoding = table
		}
	}
	if tu := r.resolveToUnicode(fontDict, logger); tu != nil {
		info.toUnicode = tu
	}

	if _, glyphMap, ok := r.resolveEmbeddedGlyphMap(fontDict, logger); ok {
		info.embeddedGlyphMap = glyphMap
	}

	return info
}

// resolveEncoding implements §4.4 step 2: Encoding may be a bare name or a
// dictionary carrying a BaseEncoding name plus a Differences array.
func (r *Registry) resolveEncoding(fontDict cos.Dictionary, logger *slog.Logger) (string, encoding.Table) {
	encObj := r.table.ResolveIfRef(fontDict.Get("Encoding"))
	switch v := encObj.(type) {
	case cos.Name:
		return string(v), nil
	case cos.Dictionary:
		baseName, _ := v.GetName("BaseEncoding")
		var base encoding.Table
		if baseName != "" {
			base, _ = encoding.ByName(string(baseName))
		}
		diffs, ok := v.GetArray("Differences")
		if !ok {
			return string(baseName), nil
		}
		return string(baseName), applyDifferences(base, diffs, logger)
	default:
		return "", nil
	}
}

// applyDifferences merges a /Differences array over a base encoding table,
// per PDF 1.7 §9.6.6.1: alternating code integers and glyph names, each name
// applying to the running code and bumping it by one.
func applyDifferences(base encoding.Table, diffs cos.Array, logger *slog.Logger) encoding.Table {
	merged := make(encoding.Table, len(base)+len(diffs))
	for k, v := range base {
		merged[k] = v
	}

	var code int64
	for _, elem := range diffs {
		switch v := elem.(type) {
		case cos.Number:
			code = int64(v)
		case cos.Name:
			if cp, ok := encoding.GlyphNameToUnicode(string(v)); ok {
				merged[uint16(code)] = cp
			} else {
				logger.Debug("unrecognized glyph name in Differences", slog.String("name", string(v)))
			}
			code++
		}
	}
	return merged
}

// resolveToUnicode implements §4.4 step 3: a direct CMap stream reference.
func (r *Registry) resolveToUnicode(fontDict cos.Dictionary, logger *slog.Logger) *cmap.Table {
	obj := r.table.ResolveIfRef(fontDict.Get("ToUnicode"))
	stream, ok := obj.(*cos.Stream)
	if !ok {
		return nil
	}
	table := cmap.Parse(stream.Data)
	logger.Debug("parsed ToUnicode CMap", slog.Int("mappings", table.Len()))
	return table
}

// resolveEmbeddedGlyphMap implements §4.4 step 4: walk FontDescriptor (or
// DescendantFonts[0].FontDescriptor for a Type0 composite font) to an
// embedded font program and parse its cmap/name tables via internal/sfnt.
func (r *Registry) resolveEmbeddedGlyphMap(fontDict cos.Dictionary, logger *slog.Logger) (*sfnt.Font, map[uint16]rune, bool) {
	descSource := fontDict

	if descendants, ok := fontDict.GetArray("DescendantFonts"); ok && len(descendants) > 0 {
		if d, ok := r.table.ResolveIfRef(descendants[0]).(cos.Dictionary); ok {
			descSource = d
		}
	}

	descObj := r.table.ResolveIfRef(descSource.Get("FontDescriptor"))
	descDict, ok := descObj.(cos.Dictionary)
	if !ok {
		return nil, nil, false
	}

	programData, ok := r.firstEmbeddedProgram(descDict)
	if !ok {
		return nil, nil, false
	}

	font, ok := sfnt.Parse(programData)
	if !ok {
		logger.Debug("embedded font program failed to parse as sfnt")
		return nil, nil, false
	}

	glyphMap := font.GlyphToUnicode
	if cidToGID, ok := r.resolveCIDToGIDMap(descSource); ok {
		glyphMap = remapByCIDToGID(glyphMap, cidToGID)
	}

	return font, glyphMap, true
}

// firstEmbeddedProgram tries FontFile2 (TrueType), then FontFile3
// (CFF/OpenType), then FontFile (Type 1) in that order and returns the first
// one present. A Type 1 program is not an sfnt container, so sfnt.Parse
// rejects it.
func (r *Registry) firstEmbeddedProgram(descDict cos.Dictionary) ([]byte, bool) {
	for _, key := range []cos.Name{"FontFile2", "FontFile3", "FontFile"} {
		obj := r.table.ResolveIfRef(descDict.Get(key))
		if stream, ok := obj.(*cos.Stream); ok {
			return stream.Data, true
		}
	}
	return nil, false
}

// resolveCIDToGIDMap returns the CID→glyph-id remap table for a CIDFont, if
// it carries an explicit stream (rather than /Identity, which needs no
// remapping at all).
func (r *Registry) resolveCIDToGIDMap(descendant cos.Dictionary) (map[uint32]uint16, bool) {
	obj := r.table.ResolveIfRef(descendant.Get("CIDToGIDMap"))
	stream, ok := obj.(*cos.Stream)
	if !ok {
		return nil, false
	}
	out := make(map[uint32]uint16, len(stream.Data)/2)
	for i := 0; i+1 < len(stream.Data); i += 2 {
		gid := uint16(stream.Data[i])<<8 | uint16(stream.Data[i+1])
		if gid == 0 {
			continue
		}
		out[uint32(i/2)] = gid
	}
	return out, true
}

// remapByCIDToGID composes an explicit CIDToGIDMap with the glyph-id keyed
// map so glyph codes seen in content streams (CIDs) look up the Unicode
// values already produced for the glyphs those CIDs point to.
func remapByCIDToGID(glyphToUnicode map[uint16]rune, cidToGID map[uint32]uint16) map[uint16]rune {
	out := make(map[uint16]rune, len(cidToGID))
	for cid, gid := range cidToGID {
		if r, ok := glyphToUnicode[gid]; ok {
			out[uint16(cid)] = r
		}
	}
	return out
}
