package driven

import "context"

// FetchedPage is the result of retrieving a web page.
type FetchedPage struct {
	// Body is the raw response body.
	Body []byte

	// ContentType is the response Content-Type header.
	ContentType string

	// FinalURL is the URL after redirects.
	FinalURL string
}

// PageFetcher retrieves web pages for URL payloads.
// Implementations handle rate limiting and politeness.
type PageFetcher interface {
	// Fetch retrieves the page at the given URL.
	// Transport failures are classified as transient; 4xx responses as
	// validation failures.
	Fetch(ctx context.Context, url string) (*FetchedPage, error)
}
