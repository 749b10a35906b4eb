// Package repository provides a generic repository abstraction built on Bun:
// CRUD with projections, predicate queries, sorted/filtered pagination, bulk
// updates, dialect-gated upserts, and atomic in-place increments.
package repository
