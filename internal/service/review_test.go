package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

func submitPending(t *testing.T, svc *Service, kind models.ContributionKind, payload any) *models.Contribution {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	c, err := svc.SubmitContribution(context.Background(), &models.Contribution{
		AuthorID:    "member-1",
		AuthorEmail: "member@example.com",
		FieldName:   kind,
		NewValue:    raw,
	})
	require.NoError(t, err)
	return c
}

func TestSubmitContribution_Permissive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Garbage content is accepted; only an empty payload or a missing
	// discriminator is refused.
	c, err := svc.SubmitContribution(ctx, &models.Contribution{
		AuthorID:  "member-1",
		FieldName: models.KindAddPerson,
		NewValue:  json.RawMessage(`{"generation":"not a number "}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.ContributionPending, c.Status)
	assert.Nil(t, c.ReviewedAt)
	assert.Nil(t, c.AppliedAt)

	_, err = svc.SubmitContribution(ctx, &models.Contribution{
		AuthorID:  "member-1",
		FieldName: models.KindAddPerson,
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = svc.SubmitContribution(ctx, &models.Contribution{
		AuthorID: "member-1",
		NewValue: json.RawMessage(`{}`),
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSubmitContribution_IgnoresCallerSuppliedState(t *testing.T) {
	svc, _ := newTestService(t)

	raw := json.RawMessage(`{"body":"tin"}`)
	now := dateOf(t, "2026-01-01")
	c, err := svc.SubmitContribution(context.Background(), &models.Contribution{
		AuthorID:   "member-1",
		FieldName:  models.KindAddPost,
		NewValue:   raw,
		Status:     models.ContributionApproved,
		ReviewedBy: "member-1",
		ReviewedAt: now,
		AppliedAt:  now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContributionPending, c.Status)
	assert.Empty(t, c.ReviewedBy)
	assert.Nil(t, c.ReviewedAt)
	assert.Nil(t, c.AppliedAt)
}

func TestReviewContribution_Transitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c := submitPending(t, svc, models.KindAddPost, models.AddPostPayload{Body: "tin"})

	reviewed, err := svc.ReviewContribution(ctx, RoleAdmin, c.ID, models.ContributionApproved, "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionApproved, reviewed.Status)
	assert.Equal(t, "admin-1", reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewedAt)
	assert.Nil(t, reviewed.AppliedAt)

	// A later review overwrites the earlier one while unapplied.
	reviewed, err = svc.ReviewContribution(ctx, RoleEditor, c.ID, models.ContributionRejected, "editor-1", "trùng lặp")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionRejected, reviewed.Status)
	assert.Equal(t, "editor-1", reviewed.ReviewedBy)
	assert.Equal(t, "trùng lặp", reviewed.AdminNote)
}

func TestReviewContribution_Guards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c := submitPending(t, svc, models.KindAddPost, models.AddPostPayload{Body: "tin"})

	_, err := svc.ReviewContribution(ctx, RoleMember, c.ID, models.ContributionApproved, "member-1", "")
	require.Error(t, err)
	assert.True(t, IsPermission(err))

	_, err = svc.ReviewContribution(ctx, RoleAdmin, c.ID, models.ContributionPending, "admin-1", "")
	require.Error(t, err)
	assert.True(t, IsValidation(err), "pending is not a reviewer decision")

	_, err = svc.ReviewContribution(ctx, RoleAdmin, "no-such-id", models.ContributionApproved, "admin-1", "")
	require.Error(t, err)
	assert.True(t, IsSkip(err))
}

func TestReviewContribution_SealedAfterApply(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c := submitApproved(t, svc, models.KindAddPost, models.AddPostPayload{Body: "tin"}, "")
	result, err := svc.ApplyContribution(ctx, RoleAdmin, "admin-1", c.ID)
	require.NoError(t, err)
	require.True(t, result.OK)

	_, err = svc.ReviewContribution(ctx, RoleAdmin, c.ID, models.ContributionRejected, "admin-1", "đổi ý")
	require.Error(t, err)
	assert.True(t, IsSkip(err), "an applied contribution is immutable")

	stored, err := svc.Contributions.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionApproved, stored.Status)
	require.NotNil(t, stored.AppliedAt)
}

func TestReviewContribution_RejectionWritesAudit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	c := submitPending(t, svc, models.KindAddPost, models.AddPostPayload{Body: "tin"})
	_, err := svc.ReviewContribution(ctx, RoleAdmin, c.ID, models.ContributionRejected, "admin-1", "nội dung không phù hợp")
	require.NoError(t, err)

	entries, err := store.Audit().List(ctx, repository.AuditFilters{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionReject, entries[0].Action)
	assert.Equal(t, c.ID, entries[0].EntityID)
	assert.Equal(t, "nội dung không phù hợp", entries[0].Metadata["error"])
	assert.Equal(t, "member@example.com", entries[0].Metadata["author_email"])
}

func TestListContributions_StatusFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := submitPending(t, svc, models.KindAddPost, models.AddPostPayload{Body: "một"})
	b := submitPending(t, svc, models.KindAddPost, models.AddPostPayload{Body: "hai"})
	submitPending(t, svc, models.KindAddPost, models.AddPostPayload{Body: "ba"})
	_, err := svc.ReviewContribution(ctx, RoleAdmin, a.ID, models.ContributionApproved, "admin-1", "")
	require.NoError(t, err)
	_, err = svc.ReviewContribution(ctx, RoleAdmin, b.ID, models.ContributionRejected, "admin-1", "")
	require.NoError(t, err)

	all, err := svc.ListContributions(ctx, repository.ContributionFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	wantPending := models.ContributionPending
	pending, err := svc.ListContributions(ctx, repository.ContributionFilters{Status: &wantPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	wantApproved := models.ContributionApproved
	approved, err := svc.ListContributions(ctx, repository.ContributionFilters{Status: &wantApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, a.ID, approved[0].ID)
}
