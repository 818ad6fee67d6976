// Package scheduler drives periodic code refreshes.
//
// A Scheduler is Idle until it receives a valid configuration. It then ticks
// once per interval, computes the current code and remaining seconds with the
// totp package and hands the result to an Observer. Clearing the
// configuration, or applying an invalid one, stops the ticker and publishes a
// single State without a code so a display never keeps showing a stale code.
//
// The configuration is swapped atomically as a whole, so a tick sees either
// the old or the new configuration and never a mix of both.
package scheduler
