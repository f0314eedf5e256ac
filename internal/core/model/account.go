package model

import "time"

// Account is a reviewer login. Admins manage accounts at runtime; the
// config file only seeds accounts that do not exist yet.
type Account struct {
	ID           string     `json:"reviewer_id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Admin        bool       `json:"admin"`
	Disabled     bool       `json:"disabled"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}
