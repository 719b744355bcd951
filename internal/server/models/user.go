// Package models defines server-side data models persisted in the database.
package models

import "github.com/dmitrijs2005/bugsheriff/internal/common"

// User is a registered account. PasswordHash holds a bcrypt hash.
type User struct {
	ID             int64
	UserName       string
	PasswordHash   []byte
	Role           string
	SecretQuestion string
	SecretAnswer   string
	IBAN           string
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == common.RoleAdmin
}
