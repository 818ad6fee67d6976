// Package clock provides a tiny time abstraction so the refresh scheduler can
// be driven by a fake clock in tests.
package clock
