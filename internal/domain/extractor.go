package domain

// TextExtractor converts an uploaded document into normalized text.
type TextExtractor interface {
	// ExtractText picks the format from name's extension.
	ExtractText(name string, data []byte) (string, error)
}
