package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

// SubmitContribution records a member's change proposal in the moderation
// queue. Submission is deliberately permissive: the only requirement is a
// non-empty payload, so a member's submission is never rejected for
// malformed content. All domain validation happens at apply time.
func (s *Service) SubmitContribution(ctx context.Context, c *models.Contribution) (*models.Contribution, error) {
	if len(c.NewValue) == 0 {
		return nil, &ValidationError{Field: "new_value", Message: "payload must not be empty"}
	}
	if c.FieldName == "" {
		return nil, &ValidationError{Field: "field_name", Message: "is required"}
	}
	c.Status = models.ContributionPending
	c.ReviewedBy = ""
	c.ReviewedAt = nil
	c.AppliedAt = nil

	created, err := s.Contributions.Create(ctx, c)
	if err != nil {
		return nil, &PersistenceError{Op: "submit contribution", Err: err}
	}
	s.logger.Infof("Contribution %s submitted by %s (%s)", created.ID, created.AuthorID, created.FieldName)
	contributionsSubmitted.Inc()
	s.notifier.ContributionSubmitted(created)
	return created, nil
}

// ReviewContribution moves a contribution to approved or rejected. Only a
// moderator may decide; the transition is one-way — a decided contribution
// never returns to pending, though a later review overwrites an earlier one
// until the contribution is applied (last write wins). A rejection may carry
// an admin note for the author.
func (s *Service) ReviewContribution(ctx context.Context, role Role, id string, decision models.ContributionStatus, reviewedBy, adminNote string) (*models.Contribution, error) {
	if !role.CanModerate() {
		return nil, &PermissionError{Role: role}
	}
	if decision != models.ContributionApproved && decision != models.ContributionRejected {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("decision must be %s or %s", models.ContributionApproved, models.ContributionRejected)}
	}

	err := s.Contributions.SetReview(ctx, id, decision, reviewedBy, adminNote, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundOrSkipError{Message: fmt.Sprintf("contribution %s does not exist or is already applied", id)}
		}
		return nil, &PersistenceError{Op: "review contribution", Err: err}
	}

	c, err := s.Contributions.GetByID(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get contribution", Err: err}
	}
	s.logger.Infof("Contribution %s %s by %s", id, decision, reviewedBy)
	contributionsReviewed.WithLabelValues(string(decision)).Inc()
	if decision == models.ContributionRejected {
		s.auditReject(ctx, reviewedBy, c)
	}
	s.notifier.ContributionReviewed(c)
	return c, nil
}

// auditReject records the rejection decision. Rejections never mutate the
// graph, so the entry only carries the reviewer's note.
func (s *Service) auditReject(ctx context.Context, actorID string, c *models.Contribution) {
	metadata := map[string]string{
		"field_name":    string(c.FieldName),
		"person_handle": c.PersonHandle,
		"author_email":  c.AuthorEmail,
	}
	if c.AdminNote != "" {
		metadata["error"] = c.AdminNote
	}
	_, err := s.Audit.Append(ctx, &models.AuditEntry{
		ActorID:    actorID,
		Action:     models.AuditActionReject,
		EntityType: "contribution",
		EntityID:   c.ID,
		EntityName: c.PersonName,
		Metadata:   metadata,
	})
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to write audit entry for contribution %s", c.ID)
	}
}

// ListContributions returns queue entries, optionally filtered by status.
func (s *Service) ListContributions(ctx context.Context, filters repository.ContributionFilters) ([]*models.Contribution, error) {
	contributions, err := s.Contributions.List(ctx, filters)
	if err != nil {
		return nil, &PersistenceError{Op: "list contributions", Err: err}
	}
	return contributions, nil
}
