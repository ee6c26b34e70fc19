package reload

import (
	"time"

	"github.com/google/uuid"
)

// Request asks the agent to reload the access list.
type Request struct {
	ID     uuid.UUID `cbor:"1,keyasint"`
	SentAt time.Time `cbor:"2,keyasint"`
}

// Response answers one Request. Error is empty when OK.
type Response struct {
	ID    uuid.UUID `cbor:"1,keyasint"`
	OK    bool      `cbor:"2,keyasint"`
	Error string    `cbor:"3,keyasint,omitempty"`
}
