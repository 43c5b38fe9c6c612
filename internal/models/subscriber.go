package models

import (
	"errors"
	"time"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")

type Subscriber struct {
	ID          string     `json:"id"`
	FullName    string     `json:"fullName"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	Email       string     `json:"email,omitempty"`
	DateJoined  time.Time  `json:"dateJoined"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

type CreateSubscriberRequest struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

type SubscribeResponse struct {
	Message           string `json:"message"`
	Success           bool   `json:"success"`
	IsNewSubscription bool   `json:"isNewSubscription"`
}

type ListSubscribersResponse struct {
	Subscribers map[string]*Subscriber `json:"subscribers"`
	StorageType string                 `json:"storageType"`
}

// Clone returns a deep copy so callers can mutate without touching a cached value.
func (s *Subscriber) Clone() *Subscriber {
	if s == nil {
		return nil
	}
	out := *s
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		out.LastUpdated = &t
	}
	return &out
}

func (s *Subscriber) HasContact() bool {
	return s.PhoneNumber != "" || s.Email != ""
}
