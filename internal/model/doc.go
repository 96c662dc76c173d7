// Package model defines the core data structures used throughout artistscan.
//
// This package contains the following main types:
//   - Artist: The terminal output record of a crawl
//   - Task: A unit of crawl work targeting one API endpoint
//   - Extraction: Records, references and follow-up tasks parsed from one response
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, the API client, the batch aggregator and the report
// writers all exchange these types, so centralizing them prevents import cycles.
package model
