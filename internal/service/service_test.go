package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository/memory"
)

// newTestService wires the service against a fresh in-memory store.
func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc := New(logger, nil,
		store.Persons(), store.Families(), store.Contributions(),
		store.Audit(), store.Events(), store.Posts(), store.Quiz(),
	)
	return svc, store
}

// mustCreatePerson creates a person through the service and fails the test
// on error.
func mustCreatePerson(t *testing.T, svc *Service, name string, gender models.Gender, generation int) *models.Person {
	t.Helper()
	p, err := svc.CreatePerson(context.Background(), RoleAdmin, &models.Person{
		DisplayName: name,
		Gender:      gender,
		Generation:  generation,
		IsLiving:    true,
	})
	require.NoError(t, err)
	return p
}

func mustCreateFamily(t *testing.T, svc *Service) *models.Family {
	t.Helper()
	f, err := svc.CreateFamily(context.Background(), RoleAdmin)
	require.NoError(t, err)
	return f
}

// requireConsistent asserts the full-graph invariants hold. Called after
// every mutating operation in these tests.
func requireConsistent(t *testing.T, svc *Service) {
	t.Helper()
	require.NoError(t, svc.CheckConsistency(context.Background()))
}

// submitApproved seeds an approved, unapplied contribution.
func submitApproved(t *testing.T, svc *Service, kind models.ContributionKind, payload any, personHandle string) *models.Contribution {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	c, err := svc.SubmitContribution(context.Background(), &models.Contribution{
		AuthorID:     "member-1",
		AuthorEmail:  "member@example.com",
		FieldName:    kind,
		NewValue:     raw,
		PersonHandle: personHandle,
	})
	require.NoError(t, err)
	_, err = svc.ReviewContribution(context.Background(), RoleAdmin, c.ID, models.ContributionApproved, "admin-1", "")
	require.NoError(t, err)
	return c
}

func dateOf(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &parsed
}
