// Package tracker wires a configured study store to a change bus and offers
// the operations behind the study-store commands: record, observe, list and watch.
package tracker
