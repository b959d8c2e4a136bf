package jwt

import (
	"github.com/golang-jwt/jwt"

	"hzarena/internal/app/user"
)

// Payload defines the structure of the JSON Web Token (JWT) claims for HZ Arena.
// It carries the standard claims plus the (name, source) pair that makes up a
// user's unique identity, so a reconnect with the same token resumes the same user.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Name is the bare user name.
	Name string `json:"name"`

	// Source is the authentication source that vouched for Name.
	Source user.AuthSource `json:"source"`
}

// Identity returns the unique identity the token was issued for.
func (p *Payload) Identity() user.Identity {
	return user.NewIdentity(p.Name, p.Source)
}
