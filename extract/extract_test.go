package extract

import (
	"testing"

	"github.com/cortexdoc/pdftext/cos"
	"github.com/cortexdoc/pdftext/internal/fonts"
	"github.com/cortexdoc/pdftext/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singlePageDoc builds a minimal single-page document: one Page dictionary whose
// Contents is a stream, and a Font resource dictionary built from the
// supplied Encoding name.
func singlePageDoc(contentStream []byte, fontEncoding cos.Name) []cos.Object {
	fontDict := cos.Dictionary{
		"Type":     cos.Name("Font"),
		"BaseFont": cos.Name("Helvetica"),
		"Encoding": fontEncoding,
	}
	resources := cos.Dictionary{
		"Font": cos.Dictionary{"F1": fontDict},
	}
	page := cos.Dictionary{
		"Type":      cos.Name("Page"),
		"Resources": resources,
		"Contents":  cos.Reference{Num: 2},
	}
	return []cos.Object{
		&cos.Indirect{Num: 1, Value: page},
		&cos.Indirect{Num: 2, Value: &cos.Stream{Data: contentStream}},
	}
}

func TestExtract_TrivialTj(t *testing.T) {
	docs := singlePageDoc([]byte("BT /F1 12 Tf (Hello World) Tj ET"), "WinAnsiEncoding")
	out := Extract(docs, Options{})
	assert.Contains(t, out, "Hello World")
}

func TestExtract_TJWithWordGap(t *testing.T) {
	docs := singlePageDoc([]byte("BT /F1 12 Tf [(Hello)-300(World)] TJ ET"), "WinAnsiEncoding")
	out := Extract(docs, Options{})
	assert.Contains(t, out, "Hello World")
}

func TestExtract_HexStringWithToUnicode(t *testing.T) {
	fontDict := cos.Dictionary{
		"Type":      cos.Name("Font"),
		"BaseFont":  cos.Name("Embedded"),
		"ToUnicode": cos.Reference{Num: 3},
	}
	resources := cos.Dictionary{"Font": cos.Dictionary{"F1": fontDict}}
	page := cos.Dictionary{
		"Type":      cos.Name("Page"),
		"Resources": resources,
		"Contents":  cos.Reference{Num: 2},
	}
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: page},
		&cos.Indirect{Num: 2, Value: &cos.Stream{Data: []byte("BT /F1 12 Tf <00480065006C006C006F> Tj ET")}},
		&cos.Indirect{Num: 3, Value: &cos.Stream{Data: []byte(
			"beginbfchar\n<0048> <0048>\n<0065> <0065>\n<006C> <006C>\n<006F> <006F>\nendbfchar",
		)}},
	}
	out := Extract(docs, Options{})
	assert.Contains(t, out, "Hello")
}

func TestExtract_MultiplePages(t *testing.T) {
	fontDict := cos.Dictionary{"Type": cos.Name("Font"), "BaseFont": cos.Name("Helvetica"), "Encoding": cos.Name("WinAnsiEncoding")}
	resources := cos.Dictionary{"Font": cos.Dictionary{"F1": fontDict}}
	page1 := cos.Dictionary{"Type": cos.Name("Page"), "Resources": resources, "Contents": cos.Reference{Num: 3}}
	page2 := cos.Dictionary{"Type": cos.Name("Page"), "Resources": resources, "Contents": cos.Reference{Num: 4}}

	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: page1},
		&cos.Indirect{Num: 2, Value: page2},
		&cos.Indirect{Num: 3, Value: &cos.Stream{Data: []byte("BT /F1 12 Tf (Page One) Tj ET")}},
		&cos.Indirect{Num: 4, Value: &cos.Stream{Data: []byte("BT /F1 12 Tf (Page Two) Tj ET")}},
	}
	out := Extract(docs, Options{})
	assert.Contains(t, out, "Page One")
	assert.Contains(t, out, "Page Two")
}

func TestExtract_ContentsAsArray(t *testing.T) {
	fontDict := cos.Dictionary{"Type": cos.Name("Font"), "BaseFont": cos.Name("Helvetica"), "Encoding": cos.Name("WinAnsiEncoding")}
	resources := cos.Dictionary{"Font": cos.Dictionary{"F1": fontDict}}
	page := cos.Dictionary{
		"Type":      cos.Name("Page"),
		"Resources": resources,
		"Contents":  cos.Array{cos.Reference{Num: 2}, cos.Reference{Num: 3}},
	}
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: page},
		&cos.Indirect{Num: 2, Value: &cos.Stream{Data: []byte("BT /F1 12 Tf (First) Tj ET")}},
		&cos.Indirect{Num: 3, Value: &cos.Stream{Data: []byte("BT /F1 12 Tf (Second) Tj ET")}},
	}
	out := Extract(docs, Options{})
	assert.Contains(t, out, "First")
	assert.Contains(t, out, "Second")
}

func TestExtract_NoPagesFallsBackToStreamScan(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: &cos.Stream{
			Dict: cos.Dictionary{"Type": cos.Name("XRef")},
			Data: []byte("BT (should be skipped, XRef stream) Tj ET"),
		}},
		&cos.Indirect{Num: 2, Value: &cos.Stream{
			Data: []byte("BT /F1 12 Tf (Recovered Text) Tj ET"),
		}},
		&cos.Indirect{Num: 3, Value: cos.Dictionary{
			"Type":     cos.Name("Font"),
			"BaseFont": cos.Name("Helvetica"),
			"Encoding": cos.Name("WinAnsiEncoding"),
		}},
		&cos.Indirect{Num: 4, Value: cos.Dictionary{
			"F1": cos.Reference{Num: 3},
		}},
	}
	out := Extract(docs, Options{})
	assert.Contains(t, out, "Recovered Text")
}

func TestGlobalFontScope_Font_DeterministicOnKeyCollision(t *testing.T) {
	// Two distinct dictionaries both map "F1" to a different Font object.
	// Which one wins the merge must be stable (the highest object id, since
	// Font walks ids in ascending order and a later dictionary overwrites an
	// earlier one's entry), not whichever Go's map iteration visits last on a
	// given run.
	docs := []cos.Object{
		&cos.Indirect{Num: 10, Value: cos.Dictionary{"F1": cos.Reference{Num: 3}}},
		&cos.Indirect{Num: 20, Value: cos.Dictionary{"F1": cos.Reference{Num: 4}}},
		&cos.Indirect{Num: 3, Value: cos.Dictionary{
			"Type": cos.Name("Font"), "BaseFont": cos.Name("Helvetica"), "Encoding": cos.Name("WinAnsiEncoding"),
		}},
		&cos.Indirect{Num: 4, Value: cos.Dictionary{
			"Type": cos.Name("Font"), "BaseFont": cos.Name("Courier"), "Encoding": cos.Name("MacRomanEncoding"),
		}},
	}
	table := resolver.BuildTable(docs)
	registry := fonts.BuildRegistry(table)

	var names []string
	for i := 0; i < 10; i++ {
		scope := &globalFontScope{registry: registry, table: table}
		info := scope.Font("F1")
		require.NotNil(t, info)
		names = append(names, info.Name)
	}
	for _, n := range names {
		assert.Equal(t, names[0], n, "merge winner must not vary across runs")
	}
}

func TestExtract_EmptyDocumentYieldsEmptyString(t *testing.T) {
	out := Extract(nil, Options{})
	assert.Equal(t, "", out)
}

func TestOptions_Divider(t *testing.T) {
	assert.Equal(t, "\n", Options{}.divider())
	assert.Equal(t, "|", Options{Divider: "|"}.divider())
}
