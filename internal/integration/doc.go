// Package integration holds end-to-end tests that combine the bus, the study
// stores and the real file and SQLite backends.
package integration
