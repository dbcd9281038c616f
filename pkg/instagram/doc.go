// Package instagram fetches post metadata, comments and profile timelines
// from Instagram's web API.
//
// This package includes:
//   - A configurable HTTP client carrying an optional authenticated session
//   - Type-safe models for the web API responses
//   - Helper functions for constructing API endpoints
//   - A fetcher with session lifecycle handling and rate-limit-aware paging
//
// The fetcher's session lifecycle has three states: a stored session blob is
// attached at construction without network validation; otherwise credential
// login runs on demand with throttling-aware retries; without either the
// fetcher stays unauthenticated, in which case metadata fetches still work
// for public posts but comment fetches return empty results.
//
// Example usage:
//
//	client := instagram.NewClient(60*time.Second, "", log)
//	fetcher := instagram.NewFetcher(client, limiter, sessions, instagram.Options{
//	    Username: "account",
//	    Password: "secret",
//	}, log)
//
//	if err := fetcher.EnsureAuthenticated(ctx); err != nil {
//	    // comments will not be retrievable this run
//	}
//
//	item, err := fetcher.FetchMetadata(ctx, shortcode)
//	comments, err := fetcher.FetchComments(ctx, shortcode, 1000)
package instagram
