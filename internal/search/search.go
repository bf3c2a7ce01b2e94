// Package search contains the web search abstraction used to collect supporting sources.
package search

import (
	"context"
	"errors"
)

var (
	ErrEmptyQuery       = errors.New("query must not be empty")
	ErrUnexpectedStatus = errors.New("unexpected search status")
	ErrEngine           = errors.New("search engine error")
)

// Result is a single ranked search hit.
type Result struct {
	URL      string
	Title    string
	Passages []string
}

// Searcher runs a web search and returns results in the engine's ranking order.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// URLs returns the URLs of results in order.
func URLs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.URL)
	}
	return out
}
