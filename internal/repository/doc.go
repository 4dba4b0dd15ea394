// Package repository defines the persistence interfaces of the resource graph.
//
// # Repository Interface
//
// Repository stores the most recent resource snapshot together with where it
// came from, so the service can answer graph requests right after a restart.
//
// # SQLite Implementation
//
// The sqlite subpackage implements Repository and cache.Store on one
// database file: a cache_entries key-value table holds the layout cache blob,
// and a resources table holds the snapshot in its original order. SQLite
// "database or disk is full" failures surface as cache.ErrQuotaExceeded, which
// can be provoked deliberately with WithMaxPageCount.
//
// # Testing
//
// Tests run against private in-memory databases (":memory:").
package repository
