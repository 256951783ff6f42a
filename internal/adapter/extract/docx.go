package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	documentPart = "word/document.xml"
	// maxDocumentXML caps the decompressed size of document.xml.
	maxDocumentXML = 64 << 20
)

// parseDOCX joins the text of every w:p paragraph in document order with a
// newline. Runs inside a paragraph are concatenated; w:tab and w:br become
// whitespace; everything else is formatting and is dropped.
func parseDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", errors.New(documentPart + " not found")
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer rc.Close()

	return paragraphs(io.LimitReader(rc, maxDocumentXML))
}

func paragraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		paras  []string
		cur    strings.Builder
		inPara int
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				// Nested paragraphs (text boxes) fold into the outer one.
				inPara++
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara--
				if inPara == 0 {
					paras = append(paras, cur.String())
					cur.Reset()
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return strings.Join(paras, "\n"), nil
}
