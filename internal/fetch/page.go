package fetch

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the rendered content of one fetched URL plus timing metadata.
type Page struct {
	URL        string
	FinalURL   string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
	Elapsed    time.Duration
	Retries    int
}

// Document parses the page HTML for callers that want structured access.
func (p *Page) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
}

// Blocked reports whether the rendered page is an anti-bot interstitial
// rather than real content. Amazon serves a captcha page with a distinctive
// form action; a generic title check catches the rest.
func Blocked(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	if doc.Find(`form[action="/errors/validateCaptcha"]`).Length() > 0 {
		return true
	}

	title := strings.ToLower(doc.Find("title").First().Text())
	for _, marker := range []string{"robot check", "captcha", "access denied"} {
		if strings.Contains(title, marker) {
			return true
		}
	}

	if doc.Find("#captchacharacters").Length() > 0 {
		return true
	}

	return false
}
