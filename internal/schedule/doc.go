// Package schedule provides utilities for cron expression handling and deferred execution.
//
// Cron functions parse and validate cron expressions and compute upcoming run times.
// RunAt executes a function asynchronously at a specified time, and Loop runs a
// function on every occurrence of a cron expression.
package schedule
