// Package scan provides the streaming JSON scan/dispatch engine for osufeed.
//
// This package is internal to osufeed and handles the single-pass scanning
// of game-state snapshot documents. It tracks the dotted property path of
// the value under the cursor, dispatches registered leaf values to typed
// handlers, and skips everything else (arrays included) without building
// intermediate objects or strings.
//
// The main components are:
//
//   - [Tracker]: Records the dotted property path during a scan
//   - [Scanner]: Byte-level cursor over a single document
//   - [Registry]: Registered path handlers plus the per-document value table
//   - [Engine]: Drives one scan pass over one document
//
// Users of the osufeed library should not need to interact with this
// package directly. Handlers are registered by the main osufeed package.
package scan
