// Package search implements the perception strategies the step actions
// rely on: the skip-control finder, template waits, free-text search and
// the target locator for the target picker.
//
// Every strategy polls the device through platform.Clock so a fake clock
// can drive it in tests. Perception misses are reported as a false result,
// never as an error; errors are reserved for cancellation and unusable
// backends.
package search
