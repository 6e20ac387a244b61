package auth

import (
	"strings"
	"time"
)

// User is a console identity. Users are deactivated, never deleted.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName returns the user's name or the local part of the email.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Application is a tenant application onboarded to the platform.
type Application struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	APIKey    string    `json:"apiKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// Module is a unit of functionality inside one application. Its slug is
// unique within the application only.
type Module struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
}

// Role belongs to one application and carries module grants.
type Role struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	Grants        []Grant   `json:"permissions"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SessionRecord is the persisted half of a refresh token. Deleting it
// revokes the token.
type SessionRecord struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SettingsID is the primary key of the singleton settings row.
const SettingsID = "00000000-0000-0000-0000-000000000001"

// Settings holds instance-wide console settings.
type Settings struct {
	InstanceName   string    `json:"instanceName"`
	APIURL         string    `json:"apiUrl"`
	SessionTimeout string    `json:"sessionTimeout"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DefaultSettings mirrors the column defaults of the settings table.
func DefaultSettings() Settings {
	return Settings{
		InstanceName:   "Admin Eeytech",
		APIURL:         "https://api.eeytech.com.br",
		SessionTimeout: "15",
	}
}
