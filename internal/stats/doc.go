// Package stats aggregates relay events into cumulative counters, rolling
// per-minute rates, peaks and a health verdict.
//
// Stats is safe for concurrent use: ingress handlers record admissions while
// the delivery worker records dispatch outcomes, and readers obtain a
// consistent Snapshot taken under a single lock.
package stats
