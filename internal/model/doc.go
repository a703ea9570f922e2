// Package model defines the data structures shared across shotdiff.
//
// This package contains the following main types:
//   - PageTarget: one page addressed in both the reference and the candidate environment
//   - CapturedImage: a decoded, normalized screenshot
//   - Outcome: the tagged result of comparing one page (a score or a failure kind)
//   - ComparisonResult: everything recorded for one page during a run
//   - Run: the ordered results of one device session
//   - Layout: where artifacts of a run are written on disk
//
// The types carry JSON tags so they can be written as reports and stored in
// the history database without intermediate structs.
package model
