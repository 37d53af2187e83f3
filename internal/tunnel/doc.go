// Package tunnel owns transport-process lifecycle.
//
// Ownership boundary:
// - ssh client subprocess spawn/kill
// - pooling keyed by (hostname, daemon command)
// - non-blocking line-oriented reads from subprocess pipes
//
// One live transport exists per key at any time. Eviction removes the
// registry entry so the next acquire respawns a fresh process.
//
// Tunnel does not interpret command output; framing lives in remote.
package tunnel
