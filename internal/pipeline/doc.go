// Package pipeline drives every active task through its stage list. A single
// scheduler owns all task state mutation; provider queues bound how many
// calls run against each external capability at once. Work only resumes
// through stage completion callbacks, so the scheduler itself never blocks.
package pipeline
