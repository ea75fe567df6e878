// Package sfnt parses the subset of the TrueType/OpenType container format
// needed to recover a glyph-id → Unicode mapping from an embedded PDF font
// program: the table directory, the cmap table (formats 0, 4, 6, 12), and the
// name table.
//
// Unlike a font renderer, this package never needs glyph outlines: the only
// output is Font.GlyphToUnicode, used to decode single-byte/CID codes that
// a PDF font's ToUnicode map does not cover, when the font carries an
// embedded program.
//
// Reference: TrueType Reference Manual / OpenType specification, 'cmap' and
// 'name' tables.
package sfnt

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// Font is the subset of an sfnt font program this module cares about.
type Font struct {
	// Name is the font's PostScript or family name, from the name table.
	Name string

	// GlyphToUnicode maps glyph index to the Unicode code point it renders,
	// built from the best available cmap subtable.
	GlyphToUnicode map[uint16]rune
}

type tableEntry struct {
	tag    string
	offset uint32
	length uint32
}

// Parse parses an sfnt container (TrueType, OpenType/CFF, or 'true') from
// in-memory bytes. It reports ok=false rather than an error: a font program
// that fails to parse degrades to "no embedded glyph mapping" for its
// caller, per the module's best-effort extraction contract.
func Parse(data []byte) (*Font, bool) {
	if len(data) < 12 {
		return nil, false
	}

	version := binary.BigEndian.Uint32(data[0:4])
	switch version {
	case 0x00010000, 0x74727565: // TrueType, 'true'
	case 0x4F54544F: // 'OTTO' — OpenType with CFF outlines; table dir is identical.
	default:
		return nil, false
	}

	numTables := binary.BigEndian.Uint16(data[4:6])
	tables := make(map[string]tableEntry, numTables)

	const dirEntrySize = 16
	base := 12
	for i := 0; i < int(numTables); i++ {
		start := base + i*dirEntrySize
		if start+dirEntrySize > len(data) {
			return nil, false
		}
		entry := tableEntry{
			tag:    string(data[start : start+4]),
			offset: binary.BigEndian.Uint32(data[start+8 : start+12]),
			length: binary.BigEndian.Uint32(data[start+12 : start+16]),
		}
		tables[entry.tag] = entry
	}

	font := &Font{GlyphToUnicode: make(map[uint16]rune)}

	if cmapEntry, ok := tables["cmap"]; ok {
		if body, ok := tableBytes(data, cmapEntry); ok {
			font.GlyphToUnicode = parseCmap(body)
		}
	}
	if nameEntry, ok := tables["name"]; ok {
		if body, ok := tableBytes(data, nameEntry); ok {
			font.Name = parseName(body)
		}
	}

	return font, true
}

func tableBytes(data []byte, e tableEntry) ([]byte, bool) {
	end := uint64(e.offset) + uint64(e.length)
	if end > uint64(len(data)) {
		return nil, false
	}
	return data[e.offset:end], true
}

// subtableCandidate is one (platform, encoding) cmap subtable found in the
// table header, kept with its priority rank for later selection.
type subtableCandidate struct {
	platformID uint16
	encodingID uint16
	offset     uint32
	priority   int
}

// cmapSubtablePriority ranks (platformID, encodingID) pairs per the
// selection order this module follows: full Unicode repertoire first, then
// the BMP-only Windows table, then the generic Unicode platform forms, and
// finally Mac Roman as a last resort. Unrecognized combinations are not
// candidates at all.
func cmapSubtablePriority(platformID, encodingID uint16) (int, bool) {
	switch {
	case platformID == 3 && encodingID == 10:
		return 0, true
	case platformID == 3 && encodingID == 1:
		return 1, true
	case platformID == 0 && encodingID >= 3:
		return 2, true
	case platformID == 0:
		return 3, true
	case platformID == 1 && encodingID == 0:
		return 4, true
	default:
		return 0, false
	}
}

func parseCmap(data []byte) map[uint16]rune {
	result := make(map[uint16]rune)
	if len(data) < 4 {
		return result
	}
	numTables := binary.BigEndian.Uint16(data[2:4])

	var candidates []subtableCandidate
	const headerEntrySize = 8
	for i := 0; i < int(numTables); i++ {
		start := 4 + i*headerEntrySize
		if start+headerEntrySize > len(data) {
			break
		}
		platformID := binary.BigEndian.Uint16(data[start : start+2])
		encodingID := binary.BigEndian.Uint16(data[start+2 : start+4])
		offset := binary.BigEndian.Uint32(data[start+4 : start+8])
		priority, ok := cmapSubtablePriority(platformID, encodingID)
		if !ok {
			continue
		}
		candidates = append(candidates, subtableCandidate{platformID, encodingID, offset, priority})
	}
	if len(candidates) == 0 {
		return result
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.priority < best.priority {
			best = c
		}
	}

	if uint64(best.offset) >= uint64(len(data)) {
		return result
	}
	sub := data[best.offset:]
	if len(sub) < 2 {
		return result
	}
	format := binary.BigEndian.Uint16(sub[0:2])

	switch format {
	case 0:
		parseCmapFormat0(sub, result)
	case 4:
		parseCmapFormat4(sub, result)
	case 6:
		parseCmapFormat6(sub, result)
	case 12:
		parseCmapFormat12(sub, result)
	}
	return result
}

// parseCmapFormat0 parses the byte-encoding table: glyphIdArray[256], one
// entry per char code 0-255.
func parseCmapFormat0(data []byte, out map[uint16]rune) {
	const headerLen = 6
	if len(data) < headerLen+256 {
		return
	}
	for code := 0; code < 256; code++ {
		gid := data[headerLen+code]
		if gid == 0 {
			continue
		}
		setFirstOccurrence(out, uint16(gid), rune(code))
	}
}

// parseCmapFormat4 parses the segment-mapping table used by most Windows
// Unicode BMP fonts.
//
// glyphIndex formula per the TrueType spec: when idRangeOffset[i] is 0,
// glyphIndex = (charCode + idDelta[i]) mod 65536. Otherwise it is read from
// glyphIdArray at an offset computed relative to the idRangeOffset array
// entry's own storage location.
func parseCmapFormat4(data []byte, out map[uint16]rune) {
	if len(data) < 14 {
		return
	}
	segCountX2 := binary.BigEndian.Uint16(data[6:8])
	segCount := int(segCountX2 / 2)

	endCodeStart := 14
	if endCodeStart+segCount*2 > len(data) {
		return
	}
	startCodeStart := endCodeStart + segCount*2 + 2 // +2 skips reservedPad
	idDeltaStart := startCodeStart + segCount*2
	idRangeOffsetStart := idDeltaStart + segCount*2
	glyphArrayStart := idRangeOffsetStart + segCount*2
	if glyphArrayStart > len(data) {
		return
	}

	u16 := func(base int, i int) uint16 {
		off := base + i*2
		if off+2 > len(data) {
			return 0
		}
		return binary.BigEndian.Uint16(data[off : off+2])
	}
	i16 := func(base int, i int) int16 {
		return int16(u16(base, i))
	}

	glyphCount := (len(data) - glyphArrayStart) / 2

	for i := 0; i < segCount; i++ {
		startCode := u16(startCodeStart, i)
		endCode := u16(endCodeStart, i)
		idDelta := i16(idDeltaStart, i)
		idRangeOffset := u16(idRangeOffsetStart, i)

		if startCode == 0xFFFF && endCode == 0xFFFF {
			continue
		}

		for code := uint32(startCode); code <= uint32(endCode) && code != 0xFFFF; code++ {
			var glyphID uint16
			if idRangeOffset == 0 {
				glyphID = uint16((int32(code) + int32(idDelta)) & 0xFFFF)
			} else {
				idx := int(idRangeOffset)/2 - (segCount - i) + int(code-uint32(startCode))
				if idx < 0 || idx >= glyphCount {
					continue
				}
				raw := u16(glyphArrayStart, idx)
				if raw == 0 {
					continue
				}
				glyphID = uint16((int32(raw) + int32(idDelta)) & 0xFFFF)
			}
			if glyphID == 0 {
				continue
			}
			setFirstOccurrence(out, glyphID, rune(code))
		}
	}
}

// parseCmapFormat6 parses the trimmed table mapping: a dense array of glyph
// ids for a contiguous char-code range.
func parseCmapFormat6(data []byte, out map[uint16]rune) {
	if len(data) < 10 {
		return
	}
	first := binary.BigEndian.Uint16(data[6:8])
	count := binary.BigEndian.Uint16(data[8:10])
	for i := 0; i < int(count); i++ {
		off := 10 + i*2
		if off+2 > len(data) {
			break
		}
		gid := binary.BigEndian.Uint16(data[off : off+2])
		if gid == 0 {
			continue
		}
		setFirstOccurrence(out, gid, rune(int(first)+i))
	}
}

// parseCmapFormat12 parses the segmented-coverage table: groups of
// (startCharCode, endCharCode, startGlyphID). A group spanning more than
// 10000 codes is skipped entirely, since a corrupt group could otherwise
// force an unbounded loop.
func parseCmapFormat12(data []byte, out map[uint16]rune) {
	if len(data) < 16 {
		return
	}
	numGroups := binary.BigEndian.Uint32(data[12:16])
	const groupSize = 12
	base := 16
	for g := uint32(0); g < numGroups; g++ {
		start := base + int(g)*groupSize
		if start+groupSize > len(data) {
			break
		}
		startChar := binary.BigEndian.Uint32(data[start : start+4])
		endChar := binary.BigEndian.Uint32(data[start+4 : start+8])
		startGlyph := binary.BigEndian.Uint32(data[start+8 : start+12])

		if endChar < startChar || endChar-startChar > 10000 {
			continue
		}
		for c := startChar; c <= endChar; c++ {
			if c >= 0x110000 {
				break
			}
			gid := startGlyph + (c - startChar)
			if gid == 0 || gid > 0xFFFF {
				continue
			}
			setFirstOccurrence(out, uint16(gid), rune(c))
		}
	}
}

// setFirstOccurrence records glyph → code only if the glyph has no mapping
// yet: a glyph can legitimately appear in more than one cmap segment (e.g.
// both a BMP and a variation-selector entry), and the first one found by
// subtable scan order wins.
func setFirstOccurrence(out map[uint16]rune, glyph uint16, code rune) {
	if _, exists := out[glyph]; exists {
		return
	}
	out[glyph] = code
}

// parseName extracts a usable font name from the name table: the first
// nameID 4 ("full font name") record that decodes to a non-empty string,
// otherwise a nameID 6 (PostScript name) record. Records are scanned in
// table order with no preference between platforms.
func parseName(data []byte) string {
	if len(data) < 6 {
		return ""
	}
	count := binary.BigEndian.Uint16(data[2:4])
	stringOffset := binary.BigEndian.Uint16(data[4:6])

	const recordSize = 12
	var best string
	var bestNameID uint16
	for i := 0; i < int(count); i++ {
		start := 6 + i*recordSize
		if start+recordSize > len(data) {
			break
		}
		platformID := binary.BigEndian.Uint16(data[start : start+2])
		encodingID := binary.BigEndian.Uint16(data[start+2 : start+4])
		nameID := binary.BigEndian.Uint16(data[start+6 : start+8])
		length := binary.BigEndian.Uint16(data[start+8 : start+10])
		offset := binary.BigEndian.Uint16(data[start+10 : start+12])

		if nameID != 4 && nameID != 6 {
			continue
		}
		if best != "" && nameID == 6 && bestNameID == 4 {
			continue
		}

		strStart := int(stringOffset) + int(offset)
		strEnd := strStart + int(length)
		if strStart < 0 || strEnd > len(data) {
			continue
		}
		decoded := decodeNameRecord(data[strStart:strEnd], platformID, encodingID)
		if decoded == "" {
			continue
		}
		best = decoded
		bestNameID = nameID
		if nameID == 4 {
			break
		}
	}
	return best
}

// decodeNameRecord decodes one name-table string record. Windows (3) and
// the modern Unicode platform (0) records are UTF-16BE; everything else
// (Macintosh Roman, platform 1) is treated as Latin-1/ASCII, which covers
// the font names actually seen in practice.
func decodeNameRecord(raw []byte, platformID, _ uint16) string {
	if platformID == 3 || platformID == 0 {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		return string(decoded)
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
