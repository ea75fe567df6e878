package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cortexdoc/pdftext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePDF() []byte {
	return []byte(`1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
endobj
3 0 obj
<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>
endobj
4 0 obj
<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>
endobj
5 0 obj
<< /Length 36 >>
stream
BT /F1 12 Tf (Hello, pdftext!) Tj ET
endstream
endobj
`)
}

func TestRun_WritesToStdoutByDefault(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "sample.pdf")
	require.NoError(t, os.WriteFile(inputPath, samplePDF(), 0o644))

	err := run(inputPath, "", pdftext.Options{})
	assert.NoError(t, err)
}

func TestRun_WritesToOutputFile(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "sample.pdf")
	outputPath := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(inputPath, samplePDF(), 0o644))

	err := run(inputPath, outputPath, pdftext.Options{})
	require.NoError(t, err)

	out, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.True(t, len(out) > len(utf8BOM))
	assert.Equal(t, utf8BOM, out[:len(utf8BOM)])
	assert.Contains(t, string(out), "Hello, pdftext!")
}

func TestRun_MissingInputFile(t *testing.T) {
	err := run("/nonexistent/input.pdf", "", pdftext.Options{})
	assert.Error(t, err)
}

func TestNewRootCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
