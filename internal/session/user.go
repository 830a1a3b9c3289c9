package session

import (
	"time"
)

// User is the client-side view of an account, as returned by the API and
// persisted in the durable store.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// UserPatch is a partial user update. Nil fields are left unchanged.
type UserPatch struct {
	Name            *string
	Username        *string
	Email           *string
	EmailVerifiedAt *time.Time
	UpdatedAt       *time.Time
}

func (u *User) apply(p UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.EmailVerifiedAt != nil {
		u.EmailVerifiedAt = p.EmailVerifiedAt
	}
	if p.UpdatedAt != nil {
		u.UpdatedAt = p.UpdatedAt
	}
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
