// Package query caches normalized CMS reads.
//
// Each (kind, parameters) pair owns one cache entry. Concurrent reads of the
// same entry share a single fetch, data younger than the staleness threshold
// is served without a network call, and entries older than the retention
// threshold are evicted by Sweep. Failed fetches are retried within a fixed
// budget. A successful mutation invalidates every entry of its kind.
package query
