// Package identity decides how a subscription request maps onto stored
// subscribers: a new record, an update of one record, or a merge of two.
package identity

import (
	"time"

	"portfolio-api/internal/models"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeMerged  Outcome = "merged"
)

// Submission holds already-normalized fields; empty strings mean "not provided".
type Submission struct {
	FullName    string
	PhoneNumber string
	Email       string
}

type Resolution struct {
	Record  *models.Subscriber
	Outcome Outcome

	// MergedAway is the email-matched record absorbed by Record, if any.
	MergedAway *models.Subscriber

	// ReleasedPhone and ReleasedEmail are index keys Record owned before this
	// submission and no longer carries.
	ReleasedPhone string
	ReleasedEmail string
}

func (r Resolution) IsNew() bool { return r.Outcome == OutcomeCreated }

// Resolve applies the first matching rule:
//  1. both lookups returned the same record: refresh its name
//  2. only the phone matched: take the submitted email
//  3. only the email matched: take the submitted phone
//  4. both matched different records: the phone record survives and absorbs the email record
//  5. nothing matched: a new record
//
// Lookup results are never mutated.
func Resolve(sub Submission, byPhone, byEmail *models.Subscriber, now time.Time, newID func() string) Resolution {
	switch {
	case byPhone != nil && byEmail != nil && byPhone.ID == byEmail.ID:
		record := byPhone.Clone()
		record.FullName = sub.FullName
		record.LastUpdated = &now
		return Resolution{Record: record, Outcome: OutcomeUpdated}

	case byPhone != nil && byEmail == nil:
		record := byPhone.Clone()
		res := Resolution{Record: record, Outcome: OutcomeUpdated}
		record.FullName = sub.FullName
		if sub.Email != "" && sub.Email != record.Email {
			res.ReleasedEmail = record.Email
			record.Email = sub.Email
		}
		record.LastUpdated = &now
		return res

	case byEmail != nil && byPhone == nil:
		record := byEmail.Clone()
		res := Resolution{Record: record, Outcome: OutcomeUpdated}
		record.FullName = sub.FullName
		if sub.PhoneNumber != "" && sub.PhoneNumber != record.PhoneNumber {
			res.ReleasedPhone = record.PhoneNumber
			record.PhoneNumber = sub.PhoneNumber
		}
		record.LastUpdated = &now
		return res

	case byPhone != nil && byEmail != nil:
		record := byPhone.Clone()
		res := Resolution{
			Record:     record,
			Outcome:    OutcomeMerged,
			MergedAway: byEmail.Clone(),
		}
		record.FullName = sub.FullName
		if record.Email != sub.Email {
			res.ReleasedEmail = record.Email
			record.Email = sub.Email
		}
		record.LastUpdated = &now
		return res

	default:
		return Resolution{
			Record: &models.Subscriber{
				ID:          newID(),
				FullName:    sub.FullName,
				PhoneNumber: sub.PhoneNumber,
				Email:       sub.Email,
				DateJoined:  now,
			},
			Outcome: OutcomeCreated,
		}
	}
}
