package models

import (
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/common"
)

type Role string

const (
	RoleReader Role = "reader"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// MinPasswordLength mirrors the server-side rule so short passwords are
// rejected without a round trip.
const MinPasswordLength = 6

// MaxBioLength is the longest bio the profile form accepts.
const MaxBioLength = 500

// User is the minimal user summary kept next to the session token.
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts the id under either "_id" or "id"; the auth endpoints
// use the latter.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var v struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = User(v.plain)
	if u.ID == "" {
		u.ID = v.AltID
	}
	return nil
}

// CanAuthor reports whether the user may create posts.
func (u User) CanAuthor() bool {
	return u.Role == RoleAuthor || u.Role == RoleAdmin
}

// RegisterForm is the input of a registration attempt.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            Role
}

// Validate checks the form and fills in the default role.
func (f *RegisterForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	if f.Username == "" || f.Email == "" || f.Password == "" {
		return common.Invalid("username, email and password are required")
	}
	if _, err := mail.ParseAddress(f.Email); err != nil {
		return common.Invalid("email %q is not valid", f.Email)
	}
	if f.Password != f.ConfirmPassword {
		return common.Invalid("passwords do not match")
	}
	if len(f.Password) < MinPasswordLength {
		return common.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	switch f.Role {
	case "":
		f.Role = RoleReader
	case RoleReader, RoleAuthor:
	default:
		return common.Invalid("role %q cannot be chosen at registration", f.Role)
	}
	return nil
}

// Payload is the request body of POST /auth/register.
func (f RegisterForm) Payload() any {
	return struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     Role   `json:"role"`
	}{f.Username, f.Email, f.Password, f.Role}
}

// LoginForm is the input of a login attempt.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f *LoginForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	if f.Email == "" || f.Password == "" {
		return common.Invalid("email and password are required")
	}
	return nil
}

// ProfileUpdate lists the only fields a user may change on their profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (p ProfileUpdate) Validate() error {
	if p.Username == nil && p.Bio == nil && p.Avatar == nil {
		return common.Invalid("nothing to update")
	}
	if p.Username != nil && strings.TrimSpace(*p.Username) == "" {
		return common.Invalid("username cannot be empty")
	}
	if p.Bio != nil && len([]rune(*p.Bio)) > MaxBioLength {
		return common.Invalid("bio must be at most %d characters", MaxBioLength)
	}
	return nil
}
