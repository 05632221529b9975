package corpus

import "strings"

// PageSeparator splits extracted text into pages.
const PageSeparator = "\f"

// Document is extracted text from one source, split into pages.
type Document struct {
	// Source names where the text came from, e.g. a file name.
	Source string `json:"source"`

	Pages []string `json:"pages"`
}

// NewDocument splits text on form feeds, the page break most text
// extractors emit.
func NewDocument(source, text string) Document {
	return Document{
		Source: source,
		Pages:  strings.Split(text, PageSeparator),
	}
}
