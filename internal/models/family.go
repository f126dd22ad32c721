package models

import "time"

// SpouseRole identifies which parent slot of a family a spouse occupies
type SpouseRole string

const (
	SpouseRoleFather SpouseRole = "father"
	SpouseRoleMother SpouseRole = "mother"
)

// Valid reports whether r is a known spouse role.
func (r SpouseRole) Valid() bool {
	return r == SpouseRoleFather || r == SpouseRoleMother
}

// Family represents a family unit connecting two spouses and their children.
//
// Handle is the public identifier ("F" + zero-padded sequence, e.g. F010).
// FatherHandle and MotherHandle are optional Person handles; Children is an
// ordered, duplicate-free list of Person handles. Every handle referenced
// here must exist in the person store, and the referenced persons carry the
// mirror entries in their Families/ParentFamilies sets.
type Family struct {
	Handle       string    `json:"handle" db:"handle"`
	FatherHandle *string   `json:"father_handle" db:"father_handle"`
	MotherHandle *string   `json:"mother_handle" db:"mother_handle"`
	Children     []string  `json:"children" db:"children"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// HasChild returns true if the given person is a child of this family.
func (f *Family) HasChild(personHandle string) bool {
	return containsHandle(f.Children, personHandle)
}

// HasSpouse returns true if the given person is the father or mother.
func (f *Family) HasSpouse(personHandle string) bool {
	return (f.FatherHandle != nil && *f.FatherHandle == personHandle) ||
		(f.MotherHandle != nil && *f.MotherHandle == personHandle)
}

// Spouse returns the handle occupying the given role, or "" when empty.
func (f *Family) Spouse(role SpouseRole) string {
	switch role {
	case SpouseRoleFather:
		if f.FatherHandle != nil {
			return *f.FatherHandle
		}
	case SpouseRoleMother:
		if f.MotherHandle != nil {
			return *f.MotherHandle
		}
	}
	return ""
}

// References returns true if the family references the person as father,
// mother, or child.
func (f *Family) References(personHandle string) bool {
	return f.HasSpouse(personHandle) || f.HasChild(personHandle)
}
