// Package feed provides the reconnecting WebSocket transport for osufeed.
//
// This package is internal to osufeed and maintains the subscription to
// the companion process's snapshot feed. It owns one read loop per
// connection, delivers frames synchronously to the consumer, and runs a
// bounded linear-backoff reconnect sequence when the connection drops
// unexpectedly.
//
// The main component is [Client]. Lifecycle signals are exposed as
// callback fields assigned before Connect; the orchestrator in the main
// osufeed package translates them into connection-state transitions.
//
// Users of the osufeed library should not need to interact with this
// package directly.
package feed
