// Package supervisor manages the companion memory-reader process for
// osufeed.
//
// This package is internal to osufeed. It launches the companion
// executable, scrapes its stdout for the readiness line that names the
// feed port, reports unexpected exits, and stops the process gracefully
// with a kill fallback.
//
// Users of the osufeed library should not need to interact with this
// package directly; process supervision is switched on through osufeed
// options.
package supervisor
