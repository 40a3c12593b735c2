// internal/models/user.go
package models

import "github.com/google/uuid"

// User is a registered account. Username is the name shown in lobbies and
// games; Password holds the argon2id hash once the user is persisted.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`
}
