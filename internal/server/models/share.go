package models

import (
	"slices"
	"strings"
	"time"
)

// Permission is the access level a share link grants.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Valid reports whether p is a known permission level.
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// ShareLink is a bearer-token credential scoped to one file.
type ShareLink struct {
	Token      string     `json:"token"`
	FileID     string     `json:"fileId"`
	CreatedBy  string     `json:"createdBy"`
	Permission Permission `json:"permissions"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	// PasswordHash is a bcrypt hash; empty means no password.
	PasswordHash string    `json:"-"`
	Emails       []string  `json:"emails"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword reports whether the link is password protected.
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != ""
}

// Expired reports whether the link is past its expiry at now.
func (l *ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// AllowsEmail applies the restricted-email policy: an empty list admits
// anyone holding the token, otherwise email must be listed (case-insensitive).
func (l *ShareLink) AllowsEmail(email string) bool {
	if len(l.Emails) == 0 {
		return true
	}
	email = strings.TrimSpace(email)
	return slices.ContainsFunc(l.Emails, func(e string) bool {
		return strings.EqualFold(e, email)
	})
}

// Clone returns a deep copy of the link.
func (l ShareLink) Clone() ShareLink {
	l.Emails = slices.Clone(l.Emails)
	l.ExpiresAt = clonePtr(l.ExpiresAt)
	return l
}
