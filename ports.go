package gatelist

import (
	"context"
	"errors"
)

// ErrPlayerNotFound is returned by a Resolver when the gamertag does not exist.
var ErrPlayerNotFound = errors.New("gatelist: player not found")

// Resolver maps a gamertag to its stable external identifier (XUID).
// Engine calls it once per operation and never retries.
type Resolver interface {
	// Resolve returns the XUID for gamertag. It returns an error wrapping
	// ErrPlayerNotFound when the service reports no such player; any other
	// error means the lookup itself failed.
	Resolve(ctx context.Context, gamertag string) (string, error)
}

// Reloader asks the game server to reread the access list.
type Reloader interface {
	Reload(ctx context.Context) error
}
