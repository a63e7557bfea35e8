// Package dirstat computes cumulative file and directory sizes.
//
// It walks directory trees using fastwalk for parallel traversal, skips
// entries on an exclusion list, tolerates unreadable subtrees and reports
// every path at or above a size threshold, largest first.
package dirstat
