// Package studies persists studies whenever they change and reconstitutes them on demand.
//
// Store is one implementation parameterised over a Backend (list, read, write).
// Two variants exist:
//   - FileStore writes one JSON file per study into a directory;
//   - KeyValueStore writes binary records into a namespaced key-value store and
//     keeps an index of written keys under "<namespace>.studyList".
//
// Nothing fails loudly. Unconfigured stores and unreadable listings make
// ReconstituteStudies report false, unreadable records are skipped, and save
// failures only show up through LastSaveFailed (file variant) or the log.
package studies
