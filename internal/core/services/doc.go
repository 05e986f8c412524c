// Package services implements the extraction core.
//
//   - FilterNewRecords: drops records at or before a watermark
//   - PaginationDriver: walks every page of one (stream, parent) pass
//   - SyncOrchestrator: runs the selected streams and checkpoints bookmarks
//
// Services talk to the outside world only through driven ports. Records stay
// opaque JSON; gjson reads bookmark and parent id fields and sjson injects
// the parent foreign key.
package services
