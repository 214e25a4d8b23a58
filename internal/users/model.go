package users

import (
	"strings"
	"time"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is an account. Secrets never leave the server: they carry json:"-".
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	AuthProvider      string     `json:"authProvider"`
	GoogleID          string     `json:"-"`
	ProfilePicture    string     `json:"profilePicture,omitempty"`
	AvatarKey         string     `json:"-"`
	IsAdmin           bool       `json:"isAdmin"`
	RefreshTokenHash  string     `json:"-"`
	ResetTokenHash    string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Profile is the client view of a user.
type Profile struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	AuthProvider   string     `json:"authProvider"`
	IsAdmin        bool       `json:"isAdmin"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		AuthProvider:   u.AuthProvider,
		IsAdmin:        u.IsAdmin,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
	}
}

// NormalizeEmail is the canonical stored form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
