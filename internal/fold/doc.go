// Package fold reconciles one-to-many traversal results with the
// one-row-per-halo evaluation contract.
//
// Unfold flattens per-row candidate lists into one working slice and records
// where each row lives. After per-candidate values have been computed over
// the flat slice, Refold picks one candidate per row by a determiner column,
// masking null and NaN determiners. A Folder's state is valid only between
// one Unfold and the matching Refold; misuse panics.
package fold
