// Package queue implements the FIFO work queue for shared-key storyboard
// generation. Jobs are enqueued when a storyboard is created without a user
// API key and drained one at a time by the processor, oldest first. The
// package also computes queue positions, wait estimates, and aggregate
// statistics, and prunes terminal jobs after a retention window.
package queue
