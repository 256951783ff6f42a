// Package extract turns uploaded documents into normalized plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"semanticheck/internal/domain"
	"semanticheck/internal/usecase"
)

// Supported file extensions.
const (
	ExtText = ".txt"
	ExtDOCX = ".docx"
)

var _ domain.TextExtractor = (*Extractor)(nil)

// Extractor reads .txt and .docx uploads. It holds no state and is safe for
// concurrent use.
type Extractor struct {
	// MaxBytes rejects larger inputs with domain.ErrInputTooLarge. Zero disables the check.
	MaxBytes int64
}

// New creates an Extractor.
func New(maxBytes int64) *Extractor {
	return &Extractor{MaxBytes: maxBytes}
}

// ExtractText returns the normalized text of the named document. The format
// is chosen by extension, case-insensitively. Unknown extensions fail with
// *domain.UnsupportedFormatError.
func (e *Extractor) ExtractText(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ExtText && ext != ExtDOCX {
		return "", &domain.UnsupportedFormatError{Ext: ext}
	}
	if e.MaxBytes > 0 && int64(len(data)) > e.MaxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrInputTooLarge, name, len(data), e.MaxBytes)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ExtText:
		text, err = decodeText(data)
	case ExtDOCX:
		text, err = parseDOCX(data)
	}
	if err != nil {
		return "", domain.WrapOp("extract "+ext, err)
	}
	return usecase.Normalize(text), nil
}

// decodeText reads data as UTF-8 and falls back to ISO-8859-1, which maps
// every byte and so cannot fail on content.
func decodeText(data []byte) (string, error) {
	data = trimBOM(data)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
