// Package store holds the latest evaluation per team in memory. Entries
// expire after a TTL and are evicted by a background loop.
package store
