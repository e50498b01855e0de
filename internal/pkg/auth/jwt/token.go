package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/errs"
)

const (
	// UserIdentityExpiration is the validity window of a login credential.
	UserIdentityExpiration = 7 * 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "dmchat"
)

// GenerateToken signs a credential for identity valid for duration.
func GenerateToken(identity user.Identity, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		ID:       identity.ID,
		Username: identity.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates tokenString with secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.ID == "" {
		return nil, errors.New("token carries no user id")
	}

	return claims, nil
}

// Verifier checks signed credentials and extracts the identity they carry.
type Verifier struct {
	secretKey string
}

// NewVerifier returns a Verifier for HS256 credentials signed with secretKey.
func NewVerifier(secretKey string) *Verifier {
	return &Verifier{secretKey: secretKey}
}

// Verify returns the identity in credential, or an InvalidCredential error.
func (v *Verifier) Verify(credential string) (user.Identity, error) {
	if credential == "" {
		return user.Identity{}, errs.NewError(errs.ErrInvalidCredential)
	}

	payload, err := ParseToken(credential, v.secretKey)
	if err != nil {
		return user.Identity{}, errs.Wrap(errs.ErrInvalidCredential, err)
	}

	return payload.Identity(), nil
}

// Issue signs a credential for identity with the default validity window.
func (v *Verifier) Issue(identity user.Identity) (string, error) {
	return GenerateToken(identity, v.secretKey, UserIdentityExpiration)
}
