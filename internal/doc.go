// Package internal contains the core implementation packages for docsync.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules.
//
// # Package Organization
//
// The internal packages are organized by functional domain, leaf first:
//
//   - scanner: Component tag tokenizer and code span extraction
//   - sanitizer: Escaping and rewriting of untrusted markup
//   - merge: Marker pairing checks and preserved section merging
//   - tracker: Content digests, file classification and regeneration scope
//   - watcher: File system monitoring with debouncing
//   - validation: Page validation pipeline and input security checks
//   - syncer: Sync cycles tying generation, merge and validation together
//   - document: Frontmatter and heading outline of pages
//   - config: Configuration loading and validation
//   - metrics: Prometheus collectors for sync cycles
//   - websocket: Sync notifications for connected clients
//   - errors, logging, types, version: Shared infrastructure
//
// # Data Flow
//
// The watcher turns file system events into debounced batches. The syncer
// drops unchanged files with the tracker, asks the generator for fresh pages
// at the scope each package needs, merges them with the published pages and
// writes only pages the validator accepts. Outcomes are recorded in metrics
// and broadcast to websocket clients.
package internal
