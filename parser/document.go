package parser

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// NewDocument parses raw page bytes into a queryable document. Documents
// are created per fetch and discarded after one page's processing.
func NewDocument(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}
