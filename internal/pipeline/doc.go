// Package pipeline compares pages by running them through a sequence of steps.
//
// Each page becomes a Job that passes through the steps in order: capture the
// reference, capture the candidate, normalize both, diff, score and optionally
// draw a composite. A step error ends the page and is mapped to an Outcome;
// it never ends the run. Runner walks the pages of one device sequentially
// and salvages partial results when the run deadline expires. BatchProcessor
// runs several devices concurrently with errgroup.
package pipeline
