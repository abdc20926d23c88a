// Package operations runs the panel pipeline as a sequence of steps.
//
// A run executes five steps in order:
//
//	locations   collect location metadata (never fatal)
//	indicators  fetch and normalize every registry indicator
//	merge       outer-join the frames into the raw panel and write it
//	derive      forward-fill, derive the year and year-over-year change
//	export      write the processed panel, location metadata and workbook
//
// Each step has a StepState (pending, active, completed, failed, skipped).
// A step that returns a SkipError is marked skipped and the run continues;
// any other error is terminal and skips every remaining step. A run where no
// indicator contributed fails with an error wrapping dataprocessing.ErrNoData.
//
// The Manager gives every run a UUID, opens a span per run and per step,
// records pipeline metrics and hands the finished summary to a RunRecorder.
package operations
