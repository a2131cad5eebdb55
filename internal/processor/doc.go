// Package processor drives storyboard generation. It contains the two
// processing paths and the completion aggregator:
//
//   - ProcessNext drains the shared-key queue one job per invocation,
//     generating scene images sequentially under the shared rate limit,
//     with whole-job retries on failure.
//   - ProcessWithUserKey runs a storyboard immediately under the owner's
//     personal rate limit (bring-your-own-key), with graceful partial
//     completion instead of retries.
//   - CheckCompletion recomputes a storyboard's terminal status and cost
//     from its current scene rows.
//
// Errors inside a processing run are translated into state transitions at
// the job boundary; they are never surfaced raw to the scheduler.
package processor
