// Package notify pushes moderation notifications to reviewers. Delivery is
// best-effort: a failed notification never fails the operation it announces.
package notify

import "github.com/dieuphamit/giapha/internal/models"

// Notifier receives moderation lifecycle callbacks.
type Notifier interface {
	ContributionSubmitted(c *models.Contribution)
	ContributionReviewed(c *models.Contribution)
}

// Noop discards all notifications. Used in tests and token-less runs.
type Noop struct{}

func (Noop) ContributionSubmitted(*models.Contribution) {}
func (Noop) ContributionReviewed(*models.Contribution)  {}
