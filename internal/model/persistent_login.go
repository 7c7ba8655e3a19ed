package model

import "time"

// PersistentLogin is one remembered browser. Series identifies the browser
// for the lifetime of the login; Token is rotated on every use and stored
// hashed.
type PersistentLogin struct {
	Series   string    `db:"series"`
	Username string    `db:"username"` // account email
	Token    string    `db:"token"`
	LastUsed time.Time `db:"last_used"`
}

// Expired reports whether the login went unused for longer than validity.
func (p *PersistentLogin) Expired(now time.Time, validity time.Duration) bool {
	return p.LastUsed.Add(validity).Before(now)
}
