package gatelist

import (
	"time"

	"github.com/kardianos/gatelist/store"
)

// Kind is the machine-readable outcome of a command.
type Kind string

const (
	KindAccepted           Kind = "accepted"
	KindApproved           Kind = "approved"
	KindRevoked            Kind = "revoked"
	KindList               Kind = "list"
	KindEmpty              Kind = "empty"
	KindHelp               Kind = "help"
	KindReloadOK           Kind = "reload-ok"
	KindWrongChannel       Kind = "wrong-channel"
	KindNotAuthorized      Kind = "not-authorized"
	KindInvalidFormat      Kind = "invalid-format"
	KindRateLimited        Kind = "rate-limited"
	KindDuplicateGamertag  Kind = "duplicate-gamertag"
	KindDuplicateRequester Kind = "duplicate-requester"
	KindNotFound           Kind = "not-found"
	KindResolutionFailed   Kind = "resolution-failed"
	KindGamertagNotFound   Kind = "gamertag-not-found"
	KindAlreadyRegistered  Kind = "already-registered"
	KindBadArgument        Kind = "bad-argument"
	KindReloadFailed       Kind = "reload-failed"
	KindStorageError       Kind = "storage-error"
	KindUnknownCommand     Kind = "unknown-command"
)

// OK reports whether the kind is a successful outcome.
func (k Kind) OK() bool {
	switch k {
	case KindAccepted, KindApproved, KindRevoked, KindList, KindEmpty, KindHelp, KindReloadOK:
		return true
	}
	return false
}

// Reply is the single response to one command.
type Reply struct {
	Kind Kind

	// Gamertag is set for outcomes about one application.
	Gamertag string

	// Status and Names are set for list and empty outcomes.
	Status store.Status
	Names  []string

	// RetryAfter is set for rate-limited outcomes.
	RetryAfter time.Duration

	// Reviewer is set for help outcomes when the caller may review.
	Reviewer bool

	// Command names the command a bad-argument or unknown-command outcome refers to.
	Command string

	// Err carries the underlying failure of storage, resolution or reload
	// outcomes for logging. It is never shown to the user.
	Err error
}
