package tokens

import "github.com/golang-jwt/jwt/v5"

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Identity is what every token carries about its holder.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{ID: c.Subject, Email: c.Email, Role: c.Role}
}
