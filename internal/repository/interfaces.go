package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dieuphamit/giapha/internal/models"
)

// ErrNotFound is returned by mutating repository calls that matched zero
// rows. It means the target did not exist or the caller had no right to it —
// deliberately indistinguishable — and is never used for connectivity
// failures, which come back wrapped from the driver.
var ErrNotFound = errors.New("record not found")

// PersonRepository defines the interface for person data operations.
//
// The link mutators (AddFamily, RemoveFamily, AddParentFamily,
// RemoveParentFamily, ReplaceParentFamily) update one side of a
// bidirectional link only; pairing them with the matching family-side call
// is the graph service's job. Each is idempotent: adding an entry that is
// already present or removing one that is absent succeeds without effect,
// while a missing person row yields ErrNotFound.
type PersonRepository interface {
	Create(ctx context.Context, person *models.Person) (*models.Person, error)
	GetByHandle(ctx context.Context, handle string) (*models.Person, error)
	List(ctx context.Context) ([]*models.Person, error)
	Handles(ctx context.Context) ([]string, error)
	UpdateField(ctx context.Context, handle, column string, value any) error
	AddFamily(ctx context.Context, personHandle, familyHandle string) error
	RemoveFamily(ctx context.Context, personHandle, familyHandle string) error
	AddParentFamily(ctx context.Context, personHandle, familyHandle string) error
	RemoveParentFamily(ctx context.Context, personHandle, familyHandle string) error
	ReplaceParentFamily(ctx context.Context, personHandle, fromFamily, toFamily string) error
	Delete(ctx context.Context, handle string) error
}

// FamilyRepository defines the interface for family data operations.
type FamilyRepository interface {
	Create(ctx context.Context, family *models.Family) (*models.Family, error)
	GetByHandle(ctx context.Context, handle string) (*models.Family, error)
	List(ctx context.Context) ([]*models.Family, error)
	Handles(ctx context.Context) ([]string, error)
	AddChild(ctx context.Context, familyHandle, childHandle string) error
	RemoveChild(ctx context.Context, familyHandle, childHandle string) error
	SetSpouse(ctx context.Context, familyHandle string, role models.SpouseRole, personHandle *string) error
	Referencing(ctx context.Context, personHandle string) ([]*models.Family, error)
	Delete(ctx context.Context, handle string) error
}

// ContributionRepository defines the interface for the moderation queue.
//
// ClaimForApply is the idempotency primitive of the apply pipeline: it
// stamps AppliedAt on the row only if the row is approved and unapplied, as
// a single conditional update, and returns the claimed row. A nil, nil
// return means no claimable row existed (missing, unreviewed, rejected, or
// already applied). ReleaseClaim undoes the stamp after a failed apply so a
// corrected retry stays possible.
type ContributionRepository interface {
	Create(ctx context.Context, c *models.Contribution) (*models.Contribution, error)
	GetByID(ctx context.Context, id string) (*models.Contribution, error)
	List(ctx context.Context, filters ContributionFilters) ([]*models.Contribution, error)
	SetReview(ctx context.Context, id string, status models.ContributionStatus, reviewedBy, adminNote string, reviewedAt time.Time) error
	ClaimForApply(ctx context.Context, id string, appliedAt time.Time) (*models.Contribution, error)
	ReleaseClaim(ctx context.Context, id string) error
}

// AuditRepository defines the interface for the append-only audit log.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error)
	List(ctx context.Context, filters AuditFilters) ([]*models.AuditEntry, error)
}

// EventRepository defines the interface for clan event operations.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
}

// PostRepository defines the interface for news post operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
}

// QuizRepository defines the interface for quiz question operations.
type QuizRepository interface {
	Create(ctx context.Context, q *models.QuizQuestion) (*models.QuizQuestion, error)
	List(ctx context.Context) ([]*models.QuizQuestion, error)
}

// ContributionFilters represents filters for querying contributions
type ContributionFilters struct {
	Status *models.ContributionStatus
	Limit  int
	Offset int
}

// AuditFilters represents filters for querying the audit log
type AuditFilters struct {
	EntityType string
	EntityID   string
	Limit      int
}
