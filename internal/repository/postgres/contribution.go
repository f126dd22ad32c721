package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

const contributionColumns = `id, author_id, author_email, field_name, new_value,
	person_handle, person_name, status, admin_note, reviewed_by, reviewed_at,
	applied_at, created_at`

type contributionRepository struct {
	db *sql.DB
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *sql.DB) repository.ContributionRepository {
	return &contributionRepository{db: db}
}

func (r *contributionRepository) Create(ctx context.Context, c *models.Contribution) (*models.Contribution, error) {
	query := `
		INSERT INTO contributions (` + contributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.ContributionPending
	}
	c.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.AuthorID, c.AuthorEmail, c.FieldName, []byte(c.NewValue),
		c.PersonHandle, c.PersonName, c.Status, c.AdminNote, c.ReviewedBy,
		c.ReviewedAt, c.AppliedAt, c.CreatedAt,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}
	return c, nil
}

func (r *contributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`
	c, err := scanContribution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

func (r *contributionRepository) List(ctx context.Context, filters repository.ContributionFilters) ([]*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions`
	args := []any{}
	argIdx := 1

	if filters.Status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

// SetReview records a review decision. Sealed rows (applied_at set) are
// immutable; before that, a later review overwrites an earlier one.
func (r *contributionRepository) SetReview(ctx context.Context, id string, status models.ContributionStatus, reviewedBy, adminNote string, reviewedAt time.Time) error {
	query := `
		UPDATE contributions
		SET status = $2, reviewed_by = $3, admin_note = $4, reviewed_at = $5
		WHERE id = $1 AND applied_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, adminNote, reviewedAt)
	if err != nil {
		return fmt.Errorf("failed to review contribution: %w", err)
	}
	return checkAffected(result)
}

// ClaimForApply stamps applied_at on the row only when it is approved and
// unapplied, as one conditional update, and returns the claimed row. Two
// racing callers cannot both claim: the loser matches zero rows and gets
// nil, nil.
func (r *contributionRepository) ClaimForApply(ctx context.Context, id string, appliedAt time.Time) (*models.Contribution, error) {
	query := `
		UPDATE contributions
		SET applied_at = $2
		WHERE id = $1 AND status = $3 AND applied_at IS NULL
		RETURNING ` + contributionColumns
	c, err := scanContribution(r.db.QueryRowContext(ctx, query, id, appliedAt, models.ContributionApproved))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim contribution: %w", err)
	}
	return c, nil
}

func (r *contributionRepository) ReleaseClaim(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contributions SET applied_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to release contribution claim: %w", err)
	}
	return checkAffected(result)
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	c := &models.Contribution{}
	var newValue []byte
	err := row.Scan(
		&c.ID, &c.AuthorID, &c.AuthorEmail, &c.FieldName, &newValue,
		&c.PersonHandle, &c.PersonName, &c.Status, &c.AdminNote, &c.ReviewedBy,
		&c.ReviewedAt, &c.AppliedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.NewValue = newValue
	return c, nil
}
