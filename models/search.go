package models

// Title sentinels used when a result page cannot supply a usable <title>.
const (
	TitleFetchFailed = "Could not fetch title"
	TitleNotFound    = "No title found"
	TitleParseFailed = "Error parsing title"
)

// EnrichedResult is a search result URL paired with a best-effort page title
type EnrichedResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
