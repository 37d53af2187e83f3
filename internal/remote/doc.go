// Package remote owns command execution over pooled tunnels.
//
// Ownership boundary:
// - session construction and validation
// - response framing (shell exit-code marker vs caller pattern)
// - the send/poll/match exchange and its error taxonomy
//
// A session borrows a transport from the tunnel pool per call and never owns
// one. One exchange must complete before the next is sent on a given key.
package remote
