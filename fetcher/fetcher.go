package fetcher

// Fetcher interface defines the contract for fetching implementations
type Fetcher interface {
	// Fetch retrieves the HTML of a single page. Transport failures and
	// non-2xx responses are returned as errors.
	Fetch(url string) (string, error)
}
