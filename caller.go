package gatelist

import "slices"

// Caller identifies who issued a command and from where.
// The chat transport fills it in; Engine trusts it.
type Caller struct {
	// UserID is stable per user and becomes the requester of an application.
	UserID string

	// ChannelID is the channel the command arrived on.
	ChannelID string

	// Roles lists the role IDs the user holds.
	Roles []string
}

// HasRole reports whether the caller holds role.
func (c Caller) HasRole(role string) bool {
	return role != "" && slices.Contains(c.Roles, role)
}
