package domain

import "time"

// User is a chat participant seen in at least one event.
type User struct {
	ID                   int32
	ExternalUserID       string
	Name                 string
	DisplayName          *string
	PreviousNames        []string
	PreviousDisplayNames []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// UserIdentity is how the event source identifies a sender.
type UserIdentity struct {
	ExternalUserID string
	Name           string
	DisplayName    *string
}

// Differs reports whether the identity carries a name or display name the user record does not have.
func (u User) Differs(id UserIdentity) bool {
	if u.Name != id.Name {
		return true
	}
	switch {
	case u.DisplayName == nil && id.DisplayName == nil:
		return false
	case u.DisplayName == nil || id.DisplayName == nil:
		return true
	}
	return *u.DisplayName != *id.DisplayName
}
