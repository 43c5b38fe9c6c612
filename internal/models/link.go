package models

import (
	"errors"
	"time"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrLinkRevoked  = errors.New("link has been revoked")
	ErrLinkExpired  = errors.New("link has expired")
	ErrLinkExists   = errors.New("link slug already in use")
)

type LinkStatus string

const (
	LinkActive  LinkStatus = "active"
	LinkRevoked LinkStatus = "revoked"
	LinkExpired LinkStatus = "expired"
)

type Link struct {
	Slug      string     `json:"slug"`
	TargetURL string     `json:"targetUrl"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	Clicks    int64      `json:"clicks"`
}

type CreateLinkRequest struct {
	Slug      string     `json:"slug"`
	TargetURL string     `json:"targetUrl"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type LinkView struct {
	*Link
	Status LinkStatus `json:"status"`
}

// StatusAt derives the link state at the given instant. Revocation wins over expiry.
func (l *Link) StatusAt(now time.Time) LinkStatus {
	if l.RevokedAt != nil {
		return LinkRevoked
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
		return LinkExpired
	}
	return LinkActive
}

func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}
	out := *l
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		out.ExpiresAt = &t
	}
	if l.RevokedAt != nil {
		t := *l.RevokedAt
		out.RevokedAt = &t
	}
	return &out
}
