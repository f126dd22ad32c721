package models

import (
	"strings"
	"time"
)

// Gender represents a person's recorded gender
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Valid reports whether g is one of the known gender values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	}
	return false
}

// Person represents a member of the family tree.
//
// Handle is the public identifier ("P" + zero-padded sequence, e.g. P001);
// it is assigned once at creation and never changes or gets reused.
// Families holds the handles of families where this person is a parent;
// ParentFamilies holds the handles of families where this person is a child.
// Both sides of those links are kept mutually consistent by the graph
// service — they must never be written directly by callers.
type Person struct {
	Handle         string     `json:"handle" db:"handle"`
	DisplayName    string     `json:"display_name" db:"display_name"`
	Surname        string     `json:"surname" db:"surname"`
	GivenName      string     `json:"given_name" db:"given_name"`
	Nickname       string     `json:"nickname" db:"nickname"`
	Gender         Gender     `json:"gender" db:"gender"`
	Generation     int        `json:"generation" db:"generation"`
	BirthDate      *time.Time `json:"birth_date" db:"birth_date"`
	DeathDate      *time.Time `json:"death_date" db:"death_date"`
	BirthYear      *int       `json:"birth_year" db:"birth_year"`
	DeathYear      *int       `json:"death_year" db:"death_year"`
	IsLiving       bool       `json:"is_living" db:"is_living"`
	Patrilineal    bool       `json:"patrilineal" db:"patrilineal"`
	Occupation     string     `json:"occupation" db:"occupation"`
	Employer       string     `json:"employer" db:"employer"`
	Education      string     `json:"education" db:"education"`
	Phone          string     `json:"phone" db:"phone"`
	Email          string     `json:"email" db:"email"`
	Zalo           string     `json:"zalo" db:"zalo"`
	Hometown       string     `json:"hometown" db:"hometown"`
	CurrentAddress string     `json:"current_address" db:"current_address"`
	Biography      string     `json:"biography" db:"biography"`
	Notes          string     `json:"notes" db:"notes"`
	Families       []string   `json:"families" db:"families"`
	ParentFamilies []string   `json:"parent_families" db:"parent_families"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// SyncYears derives the legacy year fields from the full dates.
// Years set by hand are kept when no date is present.
func (p *Person) SyncYears() {
	if p.BirthDate != nil {
		y := p.BirthDate.Year()
		p.BirthYear = &y
	}
	if p.DeathDate != nil {
		y := p.DeathDate.Year()
		p.DeathYear = &y
	}
}

// IsDeceased returns true if the person has died.
func (p *Person) IsDeceased() bool {
	return !p.IsLiving || p.DeathDate != nil || p.DeathYear != nil
}

// InFamily returns true if the person is a parent in the given family.
func (p *Person) InFamily(familyHandle string) bool {
	return containsHandle(p.Families, familyHandle)
}

// InParentFamily returns true if the person is a child in the given family.
func (p *Person) InParentFamily(familyHandle string) bool {
	return containsHandle(p.ParentFamilies, familyHandle)
}

// SortName returns the name used for alphabetical ordering.
func (p *Person) SortName() string {
	return strings.ToLower(strings.TrimSpace(p.DisplayName))
}

func containsHandle(handles []string, handle string) bool {
	for _, h := range handles {
		if h == handle {
			return true
		}
	}
	return false
}
