// Package study contains the core domain types persisted by the stores.
//
// A Study is a named collection of Options; each Option counts how often it was
// encountered and how often it was taken. Options are identified by their
// description alone, so an OptionSet never holds two options with the same
// description even when their counters differ.
package study
