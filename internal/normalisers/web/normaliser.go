// Package web provides a Normaliser implementation for URL payloads.
// It fetches the page through the PageFetcher port and extracts readable
// text, stripping tags, scripts, styles, and decoding entities.
package web

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles URL payloads.
type Normaliser struct {
	fetcher driven.PageFetcher
}

// New creates a new web page normaliser.
func New(fetcher driven.PageFetcher) *Normaliser {
	return &Normaliser{fetcher: fetcher}
}

// Name returns the normaliser name for logging.
func (n *Normaliser) Name() string {
	return "web"
}

// Supports reports whether this normaliser can handle the input.
func (n *Normaliser) Supports(input *driven.RawInput) bool {
	return input.Payload.Kind == domain.PayloadURL
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Kind-specific normaliser
}

// Normalise fetches the page and extracts readable text and title.
// Fetch failures keep the classification the fetcher gave them; a page
// that yields no text after stripping is a validation failure.
func (n *Normaliser) Normalise(ctx context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if input == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := n.fetcher.Fetch(ctx, input.Payload.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", input.Payload.URL, err)
	}

	body := string(page.Body)

	var text, title string
	if isHTML(page.ContentType, body) {
		title = extractTitle(body)
		text = stripHTML(body)
	} else {
		text = strings.TrimSpace(body)
	}

	if text == "" {
		return nil, domain.Validation(fmt.Errorf("page %s: %w", page.FinalURL, domain.ErrNoReadableContent))
	}

	return &driven.NormaliseResult{
		Text:  text,
		Title: title,
		URL:   page.FinalURL,
	}, nil
}

// isHTML decides whether the body should be treated as HTML. Servers
// occasionally mislabel pages, so the body is sniffed as a fallback.
func isHTML(contentType, body string) bool {
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml+xml") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag            = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	footerTag         = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
	multiNewlines     = regexp.MustCompile(`\n{3,}`)
)

// extractTitle extracts the page title from the <title> tag.
func extractTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	return ""
}

// stripHTML removes HTML tags and extracts readable text content.
func stripHTML(content string) string {
	// Remove non-content sections entirely
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = navTag.ReplaceAllString(content, "")
	content = footerTag.ReplaceAllString(content, "")

	// Remove HTML comments
	content = htmlComments.ReplaceAllString(content, "")

	// Add newlines around block elements for readability
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")

	// Convert <br> and <hr> to newlines
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	// Strip all remaining HTML tags
	content = allTags.ReplaceAllString(content, "")

	// Decode HTML entities
	content = html.UnescapeString(content)

	// Collapse multiple spaces (but preserve newlines)
	content = multiSpaces.ReplaceAllString(content, " ")

	// Collapse multiple newlines
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	// Trim each line and remove empty lines
	lines := strings.Split(content, "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
