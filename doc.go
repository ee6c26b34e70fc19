// Package gatelist manages access requests for a game server.
//
// Users submit a gamertag in the apply channel. A reviewer approves it in
// the review channel, which resolves the gamertag to an XUID and appends it
// to the access list the game server reads. Revoking removes both the
// application and the access entry.
//
// Engine holds the workflow. Storage, identity lookup and the reload signal
// are injected through store.Store, Resolver and Reloader.
package gatelist
