package auth

import (
	"time"

	"smartlotto.org/internal/audit"
)

// User is a stored credential. PasswordHash never leaves this package's callers
// through JSON.
type User struct {
	ID           int64     `json:"user_id"`
	Email        string    `json:"user_email"`
	Name         string    `json:"user_name"`
	PasswordHash string    `json:"-"`
	EnterpriseID int64     `json:"enterprise_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the projection of a User that may be returned to clients.
type PublicUser struct {
	ID           int64  `json:"user_id"`
	Email        string `json:"user_email"`
	Name         string `json:"user_name"`
	EnterpriseID int64  `json:"enterprise_id"`
}

// Public drops the credential material.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, EnterpriseID: u.EnterpriseID}
}

// Principal is the authenticated caller bound to one tenant.
type Principal struct {
	UserID       int64  `json:"user_id"`
	Email        string `json:"user_email"`
	Name         string `json:"user_name"`
	EnterpriseID int64  `json:"enterprise_id"`
}

// Actor converts the principal into the audit actor.
func (p Principal) Actor() audit.Actor {
	return audit.Actor{UserID: p.UserID, EnterpriseID: p.EnterpriseID}
}

// LoginResult is returned by Service.Login.
type LoginResult struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        PublicUser `json:"user"`
}

// Registration is the input of Service.Register and Service.AddMember.
type Registration struct {
	Name     string
	Email    string
	Password string
}
