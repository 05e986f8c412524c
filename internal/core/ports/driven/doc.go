// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - PageFetcher: Fetches one page of a stream (Campaign Monitor HTTP client)
//   - RecordSink: Receives schemas, records and state (Singer protocol writer)
//   - BookmarkStore: Incremental progress persistence (file, sqlite, postgres, redis, memory)
//   - ConfigStore: Persistent CLI settings
//
// # Optional Interfaces
//
//   - RunLock: Cross-process exclusion around a shared bookmark store (redis)
//   - CheckpointHistory: Past bookmark snapshots (sqlite, postgres)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
