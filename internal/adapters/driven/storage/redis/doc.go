// Package redis provides a Redis-backed bookmark store and run lock.
//
// Bookmarks are stored as one JSON state document under a single key so a
// Save replaces them atomically. The lock uses SET NX with a TTL and a
// unique owner ID so one instance cannot release another's lock.
package redis
