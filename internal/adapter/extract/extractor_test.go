package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticheck/internal/domain"
)

func buildDOCX(t *testing.T, bodyXML string) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		bodyXML + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

func TestExtractText(t *testing.T) {
	e := New(0)
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"utf8", "essay.txt", []byte("  Hello,\n\n  wörld\t!  "), "Hello, wörld !"},
		{"bom", "bom.txt", []byte("\xEF\xBB\xBFplain text"), "plain text"},
		{"latin1 fallback", "legacy.txt", []byte("caf\xe9  cr\xe8me"), "café crème"},
		{"uppercase ext", "NOTES.TXT", []byte("shout"), "shout"},
		{"empty", "empty.txt", nil, ""},
		{
			"docx paragraphs",
			"paper.docx",
			buildDOCX(t, `<w:p><w:r><w:t>First </w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t>para</w:t></w:r></w:p>`+
				`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>para</w:t></w:r></w:p>`+
				`<w:p/>`+
				`<w:p><w:r><w:t xml:space="preserve">  Third  </w:t></w:r></w:p>`),
			"First para Second para Third",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractText(tt.file, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	_, err := New(0).ExtractText("notes.pdf", []byte("%PDF-1.7"))
	require.Error(t, err)

	var ufe *domain.UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, ".pdf", ufe.Ext)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), ".pdf")
	assert.True(t, domain.IsClientError(err))
}

func TestExtractTextNoExtension(t *testing.T) {
	_, err := New(0).ExtractText("README", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtractTextTooLarge(t *testing.T) {
	_, err := New(4).ExtractText("a.txt", []byte("12345"))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
}

func TestExtractTextCorruptDOCX(t *testing.T) {
	_, err := New(0).ExtractText("broken.docx", []byte("not a zip"))
	require.Error(t, err)
	assert.False(t, domain.IsClientError(err))
}

func TestExtractTextDOCXMissingDocument(t *testing.T) {
	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	f, _ := zw.Create("word/styles.xml")
	f.Write([]byte("<styles/>"))
	require.NoError(t, zw.Close())

	_, err := New(0).ExtractText("x.docx", b.Bytes())
	assert.ErrorContains(t, err, "word/document.xml not found")
}

func TestParagraphsLineBreaks(t *testing.T) {
	text, err := parseDOCX(buildDOCX(t, `<w:p><w:r><w:t>a</w:t><w:br/><w:t>b</w:t></w:r></w:p><w:p><w:r><w:t>c</w:t></w:r></w:p>`))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc", text)
}
