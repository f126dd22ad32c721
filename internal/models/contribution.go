package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContributionStatus represents the review state of a contribution
type ContributionStatus string

const (
	ContributionPending  ContributionStatus = "pending"
	ContributionApproved ContributionStatus = "approved"
	ContributionRejected ContributionStatus = "rejected"
)

// ContributionKind selects the payload shape of a contribution
type ContributionKind string

const (
	KindEditPersonField ContributionKind = "edit_person_field"
	KindAddPerson       ContributionKind = "add_person"
	KindDeletePerson    ContributionKind = "delete_person"
	KindAddEvent        ContributionKind = "add_event"
	KindAddPost         ContributionKind = "add_post"
	KindAddQuizQuestion ContributionKind = "add_quiz_question"
)

// Contribution is a proposed change submitted by a member. It starts in
// pending, is moved exactly once to approved or rejected by a reviewer, and
// an approved contribution is applied at most once; AppliedAt distinguishes
// "approved" from "approved and already effected". Once AppliedAt is set the
// record is immutable.
type Contribution struct {
	ID           string             `json:"id" db:"id"`
	AuthorID     string             `json:"author_id" db:"author_id"`
	AuthorEmail  string             `json:"author_email" db:"author_email"`
	FieldName    ContributionKind   `json:"field_name" db:"field_name"`
	NewValue     json.RawMessage    `json:"new_value" db:"new_value"`
	PersonHandle string             `json:"person_handle" db:"person_handle"`
	PersonName   string             `json:"person_name" db:"person_name"`
	Status       ContributionStatus `json:"status" db:"status"`
	AdminNote    string             `json:"admin_note" db:"admin_note"`
	ReviewedBy   string             `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt   *time.Time         `json:"reviewed_at" db:"reviewed_at"`
	AppliedAt    *time.Time         `json:"applied_at" db:"applied_at"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
}

// IsPending returns true while the contribution awaits review.
func (c *Contribution) IsPending() bool {
	return c.Status == ContributionPending
}

// IsApplied returns true once the contribution has been effected.
func (c *Contribution) IsApplied() bool {
	return c.AppliedAt != nil
}

// Payload is the closed set of contribution payload shapes. Exactly one
// concrete type exists per ContributionKind, so dispatch is an exhaustive
// type switch rather than a string comparison chain.
type Payload interface {
	Kind() ContributionKind
}

// EditPersonFieldPayload edits a single whitelisted column of a person.
type EditPersonFieldPayload struct {
	DBColumn string `json:"db_column"`
	Label    string `json:"label"`
	Value    string `json:"value"`
}

// AddPersonPayload creates a new person, optionally married to an existing one.
type AddPersonPayload struct {
	DisplayName    string     `json:"display_name"`
	Gender         Gender     `json:"gender"`
	Generation     int        `json:"generation"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	DeathDate      *time.Time `json:"death_date,omitempty"`
	IsLiving       *bool      `json:"is_living,omitempty"`
	Occupation     string     `json:"occupation,omitempty"`
	CurrentAddress string     `json:"current_address,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	SpouseHandle   string     `json:"spouse_handle,omitempty"`
}

// DeletePersonPayload removes a person; the target handle travels on the
// contribution itself (PersonHandle), not in the payload body.
type DeletePersonPayload struct {
	Reason string `json:"reason,omitempty"`
}

// AddEventPayload inserts a clan event.
type AddEventPayload struct {
	Title       string    `json:"title"`
	StartAt     time.Time `json:"start_at"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Type        string    `json:"type,omitempty"`
}

// AddPostPayload inserts a news post.
type AddPostPayload struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// AddQuizQuestionPayload inserts a quiz question.
type AddQuizQuestionPayload struct {
	Question      string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
	Hint          string `json:"hint,omitempty"`
}

func (EditPersonFieldPayload) Kind() ContributionKind { return KindEditPersonField }
func (AddPersonPayload) Kind() ContributionKind       { return KindAddPerson }
func (DeletePersonPayload) Kind() ContributionKind    { return KindDeletePerson }
func (AddEventPayload) Kind() ContributionKind        { return KindAddEvent }
func (AddPostPayload) Kind() ContributionKind         { return KindAddPost }
func (AddQuizQuestionPayload) Kind() ContributionKind { return KindAddQuizQuestion }

// DecodePayload unmarshals NewValue into the typed payload selected by
// FieldName. An unknown kind or malformed JSON is an error; submission never
// validates payloads, so this is the apply-time entry point for all payload
// checking.
func (c *Contribution) DecodePayload() (Payload, error) {
	decode := func(dst Payload) (Payload, error) {
		if err := json.Unmarshal(c.NewValue, dst); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", c.FieldName, err)
		}
		return dst, nil
	}
	switch c.FieldName {
	case KindEditPersonField:
		return decode(&EditPersonFieldPayload{})
	case KindAddPerson:
		return decode(&AddPersonPayload{})
	case KindDeletePerson:
		return decode(&DeletePersonPayload{})
	case KindAddEvent:
		return decode(&AddEventPayload{})
	case KindAddPost:
		return decode(&AddPostPayload{})
	case KindAddQuizQuestion:
		return decode(&AddQuizQuestionPayload{})
	default:
		return nil, fmt.Errorf("unknown contribution kind %q", c.FieldName)
	}
}
