// Package filter holds the multiselect filter widgets and the page-level
// controller that aggregates their selections into a filter request.
//
// Allowed here:
// - widget state (entries, selection flags, search query, open/closed)
// - payload aggregation and request sequencing
//
// Not allowed here:
// - rendering, key handling, layout or network I/O
package filter
