// Package notify delivers study change notifications to registered listeners.
//
// A Bus is constructed and owned by the caller; there is no process-wide
// instance. Publish runs every listener synchronously on the caller's
// goroutine, in subscription order, so listeners observe events one at a time.
package notify
