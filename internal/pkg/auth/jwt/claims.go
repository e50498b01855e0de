package jwt

import (
	"github.com/golang-jwt/jwt"

	"dmchat/internal/app/user"
)

// Payload is the claim set of a dmchat credential.
type Payload struct {
	// StandardClaims carries expiry, issue time and issuer.
	jwt.StandardClaims

	// ID is the stable user identifier.
	ID string `json:"id"`

	// Username is the display name at issue time.
	Username string `json:"username"`
}

// Identity returns the user identity carried by the payload.
func (p *Payload) Identity() user.Identity {
	return user.Identity{ID: p.ID, Username: p.Username}
}
