package main

import (
	"fmt"
	"strings"

	"github.com/hnolivos/arbitrage-scanner/internal/fetch"
)

// titleTransform is the default per-item transform: it just pulls the page
// title as a sanity signal that real content rendered. Callers embedding
// the engine supply their own extraction.
func titleTransform(page *fetch.Page) (any, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return nil, fmt.Errorf("page has no title")
	}

	return map[string]string{"title": title}, nil
}
