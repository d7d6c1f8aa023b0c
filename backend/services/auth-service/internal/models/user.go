package models

import "time"

// User is an account that can sign in to the charging app.
type User struct {
	ID           int64     `json:"id"`
	PhoneNumber  string    `json:"phoneNumber"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DefaultRole is assigned when signup does not name one.
const DefaultRole = "driver"
