// Package codec maps studies to and from their stored record form.
//
// A record is a protobuf Struct shaped as
//
//	{description: string, options: [{description, timesTaken, timesEncountered}, ...]}
//
// Decoding is tolerant: the top-level description and options list are required,
// while option entries that are incomplete or mistyped are dropped. JSON and
// Binary are the two wire formats used by the file and key-value stores.
package codec
