// Package scheduler provides the periodic triggers behind the processing
// pipeline: a single-goroutine processing loop that drains the work queue
// one job per tick, and a maintenance loop that prunes expired rate
// windows and old terminal queue jobs. Running the processing loop on
// exactly one goroutine is what keeps shared-key jobs serialized.
package scheduler
