// Package credentials keeps the session credential: the bearer token and the
// user summary it belongs to. The two parts are always written and cleared
// together, so a reader sees either both or neither.
package credentials

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
)

var ErrIncomplete = errors.New("credential needs both a token and a user id")

type Credential struct {
	Token string
	User  models.User
}

func (c Credential) Validate() error {
	if c.Token == "" || c.User.ID == "" {
		return ErrIncomplete
	}
	return nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and for JWTs without an expiry.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}

// Expired reports whether the token is a JWT whose expiry is before now.
// Tokens whose expiry cannot be read are never considered expired; the server
// remains the judge for those.
func (c Credential) Expired(now time.Time) bool {
	exp, ok := ExpiresAt(c.Token)
	return ok && !now.Before(exp)
}
