/*
Package user contains the identity types shared by the chat core and the HTTP layer.

Identity is what a verified credential yields and what is attached to a live
connection. Account is the stored record behind it, including the password hash.
*/
package user

import "time"

// Identity is the verified identity of a chat participant.
// It is immutable once issued by the identity verifier.
type Identity struct {
	// ID is the stable, opaque user identifier.
	ID string `json:"userId"`

	// Username is the display name.
	Username string `json:"username"`
}

// IsZero reports whether the identity is absent.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Account is a registered user as persisted by the account store.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity returns the public identity of the account.
func (a Account) Identity() Identity {
	return Identity{ID: a.ID, Username: a.Username}
}
