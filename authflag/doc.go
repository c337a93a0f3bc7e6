// Package authflag holds the process-wide "authentication disabled" switch.
//
// The switch is an emergency bypass: while it is set, every gate in pmsGuard
// lets requests through. Its source of truth lives in the settings store; this
// package only caches the last value an operator (or the startup path) loaded.
//
// # Lifecycle
//
// A [Cache] starts unset and reports false. [Cache.Set] overwrites the value and
// its load timestamp in a single atomic store. There is no background refresh:
// callers decide when to reload from the store.
//
// # What this package must NOT do
//
//   - Read from any store or the network.
//   - Default to disabled when the value is unknown.
package authflag
