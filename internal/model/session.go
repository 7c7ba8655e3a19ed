package model

import (
	"slices"
	"time"
)

const RoleUser = "USER"

// AuthContext binds a verified account to its granted roles for one browser session.
type AuthContext struct {
	AccountID string
	Nickname  string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewAuthContext(account *Account, issuedAt, expiresAt time.Time) *AuthContext {
	return &AuthContext{
		AccountID: account.ID,
		Nickname:  account.Nickname,
		Roles:     []string{RoleUser},
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
}

func (c *AuthContext) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}
