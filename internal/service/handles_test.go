package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieuphamit/giapha/internal/models"
)

func TestNextHandle(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty store", nil, "P001"},
		{"single handle", []string{"P001"}, "P002"},
		{"gaps are not refilled", []string{"P001", "P007"}, "P008"},
		{"unordered input", []string{"P010", "P002", "P005"}, "P011"},
		{"foreign prefixes ignored", []string{"F003", "P004"}, "P005"},
		{"malformed suffix ignored", []string{"Pabc", "P002"}, "P003"},
		{"width grows past padding", []string{"P999"}, "P1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextHandle("P", tt.existing))
		})
	}
}

func TestNextPersonHandle_Sequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	h, err := svc.NextPersonHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P001", h)

	first := mustCreatePerson(t, svc, "A", models.GenderMale, 1)
	assert.Equal(t, "P001", first.Handle)

	second := mustCreatePerson(t, svc, "B", models.GenderMale, 1)
	assert.Equal(t, "P002", second.Handle)
}

func TestNextPersonHandle_NeverReusesAfterDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreatePerson(t, svc, "A", models.GenderMale, 1)
	victim := mustCreatePerson(t, svc, "B", models.GenderMale, 1)
	third := mustCreatePerson(t, svc, "C", models.GenderMale, 1)
	require.NoError(t, svc.DeletePerson(ctx, RoleAdmin, victim.Handle))

	// P002 is gone but the sequence continues past the highest survivor.
	next, err := svc.NextPersonHandle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P004", next)
	assert.Greater(t, next, third.Handle)
}

func TestNextFamilyHandle_Prefix(t *testing.T) {
	svc, _ := newTestService(t)

	f := mustCreateFamily(t, svc)
	assert.Equal(t, "F001", f.Handle)

	// Person handles do not advance the family sequence.
	mustCreatePerson(t, svc, "A", models.GenderMale, 1)
	second := mustCreateFamily(t, svc)
	assert.Equal(t, "F002", second.Handle)
}
