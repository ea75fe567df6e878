package resolver

import (
	"testing"

	"github.com/cortexdoc/pdftext/cos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTable_FlattensTopLevelIndirects(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: cos.Dictionary{"Type": cos.Name("Catalog")}},
		&cos.Indirect{Num: 2, Value: cos.Dictionary{"Type": cos.Name("Page")}},
	}
	table := BuildTable(docs)

	obj, ok := table.Resolve(1)
	require.True(t, ok)
	dict := obj.(cos.Dictionary)
	assert.Equal(t, cos.Name("Catalog"), dict["Type"])

	_, ok = table.Resolve(99)
	assert.False(t, ok)
}

func TestBuildTable_RecursesIntoNestedIndirects(t *testing.T) {
	// A nested Indirect inside an array should still be registered, even
	// though BuildTable only walks Indirect envelopes, never Reference
	// edges.
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: cos.Array{
			&cos.Indirect{Num: 2, Value: cos.Name("Nested")},
		}},
	}
	table := BuildTable(docs)

	obj, ok := table.Resolve(2)
	require.True(t, ok)
	assert.Equal(t, cos.Name("Nested"), obj)
}

func TestBuildTable_RecursesIntoStreamDicts(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: &cos.Stream{
			Dict: cos.Dictionary{
				"Length": &cos.Indirect{Num: 2, Value: cos.Number(5)},
			},
			Data: []byte("hello"),
		}},
	}
	table := BuildTable(docs)

	_, ok := table.Resolve(2)
	assert.True(t, ok)
}

func TestResolveIfRef(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: cos.Name("Target")},
	}
	table := BuildTable(docs)

	t.Run("resolves a reference", func(t *testing.T) {
		resolved := table.ResolveIfRef(cos.Reference{Num: 1})
		assert.Equal(t, cos.Name("Target"), resolved)
	})

	t.Run("passes through non-references unchanged", func(t *testing.T) {
		resolved := table.ResolveIfRef(cos.Number(42))
		assert.Equal(t, cos.Number(42), resolved)
	})

	t.Run("unresolvable reference degrades to Null", func(t *testing.T) {
		resolved := table.ResolveIfRef(cos.Reference{Num: 999})
		assert.Equal(t, cos.Null{}, resolved)
	})
}

func TestExpandObjectStreams_MaterializesPage(t *testing.T) {
	// An ObjStm header of "10 0" means object id 10 starts at offset 0 in
	// the decompressed body, which begins at /First.
	body := "10 0 /Type /Page /Contents 7 0 R"
	first := int64(len("10 0 "))
	docs := []cos.Object{
		&cos.Indirect{Num: 5, Value: &cos.Stream{
			Dict: cos.Dictionary{
				"Type":  cos.Name("ObjStm"),
				"N":     cos.Number(1),
				"First": cos.Number(float64(first)),
			},
			Data: []byte(body),
		}},
	}
	table := BuildTable(docs)
	table.ExpandObjectStreams()

	obj, ok := table.Resolve(10)
	require.True(t, ok)
	dict, ok := obj.(cos.Dictionary)
	require.True(t, ok)
	assert.Equal(t, cos.Name("Page"), dict["Type"])
	assert.Equal(t, cos.Reference{Num: 7}, dict["Contents"])
}

func TestExpandObjectStreams_MaterializesFont(t *testing.T) {
	body := "10 0 /Type /Font /ToUnicode 9 0 R"
	first := int64(len("10 0 "))
	docs := []cos.Object{
		&cos.Indirect{Num: 5, Value: &cos.Stream{
			Dict: cos.Dictionary{
				"Type":  cos.Name("ObjStm"),
				"N":     cos.Number(1),
				"First": cos.Number(float64(first)),
			},
			Data: []byte(body),
		}},
	}
	table := BuildTable(docs)
	table.ExpandObjectStreams()

	obj, ok := table.Resolve(10)
	require.True(t, ok)
	dict := obj.(cos.Dictionary)
	assert.Equal(t, cos.Name("Font"), dict["Type"])
	assert.Equal(t, cos.Reference{Num: 9}, dict["ToUnicode"])
}

func TestExpandObjectStreams_IgnoresNonObjStmStreams(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: &cos.Stream{
			Dict: cos.Dictionary{"Type": cos.Name("XRef")},
			Data: []byte("irrelevant"),
		}},
	}
	table := BuildTable(docs)
	assert.NotPanics(t, func() { table.ExpandObjectStreams() })
}

func TestExpandObjectStreams_MissingNOrFirstIsSkipped(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: &cos.Stream{
			Dict: cos.Dictionary{"Type": cos.Name("ObjStm")},
			Data: []byte("garbage"),
		}},
	}
	table := BuildTable(docs)
	assert.NotPanics(t, func() { table.ExpandObjectStreams() })
}

func TestTable_All(t *testing.T) {
	docs := []cos.Object{
		&cos.Indirect{Num: 1, Value: cos.Name("A")},
		&cos.Indirect{Num: 2, Value: cos.Name("B")},
	}
	table := BuildTable(docs)
	assert.Len(t, table.All(), 2)
}
