package model

import (
	"encoding/json"
	"strings"
)

// User is the authenticated profile.
type User struct {
	Email        string  `json:"email"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	PK           int64   `json:"pk"`
	ProfileImage *string `json:"profile_image"`
	Username     string  `json:"username"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// NormalizeUser decodes a user payload. It returns nil when the payload is
// not an object or lacks username, email or pk.
func NormalizeUser(raw json.RawMessage) *User {
	if len(raw) == 0 {
		return nil
	}
	var payload struct {
		Email        string  `json:"email"`
		FirstName    string  `json:"first_name"`
		LastName     string  `json:"last_name"`
		PK           ID      `json:"pk"`
		ProfileImage *string `json:"profile_image"`
		Username     string  `json:"username"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	pk := payload.PK.Int()
	if payload.Username == "" || payload.Email == "" || pk == 0 {
		return nil
	}
	var image *string
	if payload.ProfileImage != nil && strings.TrimSpace(*payload.ProfileImage) != "" {
		image = payload.ProfileImage
	}
	return &User{
		Email:        payload.Email,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		PK:           pk,
		ProfileImage: image,
		Username:     payload.Username,
	}
}
