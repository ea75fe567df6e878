// Package pdftext extracts plain text from a parsed PDF object graph.
//
// This package is the public entry point: it re-exports the COS value
// types an external PDF lexer must produce and the single operation that
// turns a sequence of them into text.
//
// Example:
//
//	docs := []pdftext.Object{ /* produced by an external lexer/unfilter pass */ }
//	text := pdftext.ExtractText(docs, pdftext.Options{})
package pdftext

import (
	"github.com/cortexdoc/pdftext/cos"
	"github.com/cortexdoc/pdftext/extract"
)

// Object is the PDF value-model type an external lexer produces. See the
// cos package for the full set of concrete types (Null, Boolean, Number,
// Name, String, Array, Dictionary, Stream, Reference, Indirect).
type Object = cos.Object

// Options configures an extraction run. See extract.Options.
type Options = extract.Options

// ExtractText runs the full extraction pipeline against an ordered sequence
// of top-level PDF objects (typically Indirect(id, gen, body) values) and
// returns the extracted UTF-8 text. It never fails: degraded input yields a
// partial or empty string rather than an error.
func ExtractText(docs []Object, opts Options) string {
	return extract.Extract(docs, opts)
}
