// Package fetcher turns dotted labels such as "google.issues.open.30" into
// tables for the query engine.
//
// A label names an organisation, optionally a collection of it, and then
// any number of modifiers: a state ("open", "closed" or "all") and a day
// window ("30" keeps rows updated in the last 30 days).
//
// Backends:
//
//   - GitHubFetcher reads the GitHub REST API.
//   - ParquetFetcher reads parquet files from a filesystem or over HTTP.
//   - SQLFetcher reads PostgreSQL tables.
//
// Router dispatches labels to backends by glob pattern, and CachingFetcher
// keeps fetched tables in a bolt database for a while.
package fetcher
