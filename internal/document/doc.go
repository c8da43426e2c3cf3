// Package document holds the line-indexed document model.
//
// Document is the single mutable root of the editing session: it owns
// the raw text as an ordered sequence of Line records and merges engine
// output into them. Line keys arriving from the engine are normalized
// through internal/coord before they index into the line sequence;
// entries that resolve outside the current line count are dropped
// rather than applied to a wrong line.
//
// Merging an evaluation response is one logical step: a renderer never
// observes classifications without the matching diagnostics. Lines whose
// content did not change keep their identity across merges and full
// text replacement, so dependent UI does not flicker or lose focus.
package document
