package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonSyncYears(t *testing.T) {
	birth := time.Date(1920, 3, 15, 0, 0, 0, 0, time.UTC)
	death := time.Date(1998, 11, 2, 0, 0, 0, 0, time.UTC)

	p := &Person{BirthDate: &birth, DeathDate: &death}
	p.SyncYears()
	require.NotNil(t, p.BirthYear)
	require.NotNil(t, p.DeathYear)
	assert.Equal(t, 1920, *p.BirthYear)
	assert.Equal(t, 1998, *p.DeathYear)

	// A hand-set year survives when no date is present.
	year := 1875
	p = &Person{BirthYear: &year}
	p.SyncYears()
	require.NotNil(t, p.BirthYear)
	assert.Equal(t, 1875, *p.BirthYear)
}

func TestPersonIsDeceased(t *testing.T) {
	year := 1998
	death := time.Date(1998, 11, 2, 0, 0, 0, 0, time.UTC)

	assert.False(t, (&Person{IsLiving: true}).IsDeceased())
	assert.True(t, (&Person{IsLiving: false}).IsDeceased())
	assert.True(t, (&Person{IsLiving: true, DeathYear: &year}).IsDeceased())
	assert.True(t, (&Person{IsLiving: true, DeathDate: &death}).IsDeceased())
}

func TestPersonFamilyMembership(t *testing.T) {
	p := &Person{
		Families:       []string{"F001"},
		ParentFamilies: []string{"F002"},
	}
	assert.True(t, p.InFamily("F001"))
	assert.False(t, p.InFamily("F002"))
	assert.True(t, p.InParentFamily("F002"))
	assert.False(t, p.InParentFamily("F001"))
}

func TestFamilyReferences(t *testing.T) {
	father := "P001"
	f := &Family{
		Handle:       "F001",
		FatherHandle: &father,
		Children:     []string{"P003", "P004"},
	}

	assert.True(t, f.HasSpouse("P001"))
	assert.False(t, f.HasSpouse("P003"))
	assert.True(t, f.HasChild("P004"))
	assert.True(t, f.References("P001"))
	assert.True(t, f.References("P003"))
	assert.False(t, f.References("P002"))

	assert.Equal(t, "P001", f.Spouse(SpouseRoleFather))
	assert.Empty(t, f.Spouse(SpouseRoleMother))
}
