package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	ClaimStatus string `json:"claimStatus"`
}

// Query describes a search request over reported items.
type Query struct {
	Text         string
	FilterStatus string // lost | found, empty = both
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ItemRecord is the data we index for an item.
type ItemRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	ClaimStatus string `json:"claimStatus"`
}

// Searcher can execute a full-text search over items.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
