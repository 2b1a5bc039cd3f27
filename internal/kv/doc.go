// Package kv provides the key-value preference stores behind the indexed study store.
//
// Store is a deliberately small contract (get and set opaque byte values by
// string key). MemoryStore backs tests and throwaway runs; SQLiteStore keeps
// preferences in a single SQLite table through the pure-Go modernc driver.
package kv
