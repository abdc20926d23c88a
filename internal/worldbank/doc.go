// Package worldbank is the client for the World Bank Indicators API (v2).
//
// Client.Fetch implements dataprocessing.Fetcher: it pages through
// /country/{locations}/indicator/{code} and returns the rows as a raw table
// with a "date" column, a value column named after the indicator and, unless
// the request targets a single location, a "country" column holding ISO3
// codes. Client.ListLocations reads the /country listing.
//
// Requests share a token-bucket limiter and an instrumented transport. The
// client never retries; a failed request fails the indicator.
package worldbank
