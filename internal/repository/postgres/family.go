package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

const familyColumns = `handle, father_handle, mother_handle, children, created_at, updated_at`

type familyRepository struct {
	db *sql.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *sql.DB) repository.FamilyRepository {
	return &familyRepository{db: db}
}

func (r *familyRepository) Create(ctx context.Context, family *models.Family) (*models.Family, error) {
	query := `
		INSERT INTO families (` + familyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	now := time.Now()
	family.CreatedAt = now
	family.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		family.Handle, family.FatherHandle, family.MotherHandle,
		pq.Array(family.Children), family.CreatedAt, family.UpdatedAt,
	).Scan(&family.CreatedAt, &family.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}
	return family, nil
}

func (r *familyRepository) GetByHandle(ctx context.Context, handle string) (*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families WHERE handle = $1`
	family, err := scanFamily(r.db.QueryRowContext(ctx, query, handle))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

func (r *familyRepository) List(ctx context.Context) ([]*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families ORDER BY handle`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []*models.Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

func (r *familyRepository) Handles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT handle FROM families`)
	if err != nil {
		return nil, fmt.Errorf("failed to query family handles: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan handle: %w", err)
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

// AddChild appends childHandle to the children list if absent. The CASE
// keeps the update matching the family row even when the child is already
// listed, so zero affected rows always means the family is missing.
func (r *familyRepository) AddChild(ctx context.Context, familyHandle, childHandle string) error {
	query := `
		UPDATE families
		SET children = CASE WHEN $2 = ANY(children) THEN children ELSE array_append(children, $2) END,
		    updated_at = $3
		WHERE handle = $1`
	result, err := r.db.ExecContext(ctx, query, familyHandle, childHandle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add child to family: %w", err)
	}
	return checkAffected(result)
}

func (r *familyRepository) RemoveChild(ctx context.Context, familyHandle, childHandle string) error {
	query := `
		UPDATE families
		SET children = array_remove(children, $2), updated_at = $3
		WHERE handle = $1`
	result, err := r.db.ExecContext(ctx, query, familyHandle, childHandle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to remove child from family: %w", err)
	}
	return checkAffected(result)
}

// SetSpouse assigns or clears (personHandle == nil) one parent slot.
func (r *familyRepository) SetSpouse(ctx context.Context, familyHandle string, role models.SpouseRole, personHandle *string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid spouse role %q", role)
	}
	column := "father_handle"
	if role == models.SpouseRoleMother {
		column = "mother_handle"
	}
	query := fmt.Sprintf(`UPDATE families SET %s = $2, updated_at = $3 WHERE handle = $1`, column)
	result, err := r.db.ExecContext(ctx, query, familyHandle, personHandle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set family %s: %w", role, err)
	}
	return checkAffected(result)
}

func (r *familyRepository) Referencing(ctx context.Context, personHandle string) ([]*models.Family, error) {
	query := `SELECT ` + familyColumns + ` FROM families
		WHERE father_handle = $1 OR mother_handle = $1 OR $1 = ANY(children)
		ORDER BY handle`
	rows, err := r.db.QueryContext(ctx, query, personHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to query referencing families: %w", err)
	}
	defer rows.Close()

	var families []*models.Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

func (r *familyRepository) Delete(ctx context.Context, handle string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM families WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return checkAffected(result)
}

func scanFamily(row rowScanner) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.Handle, &family.FatherHandle, &family.MotherHandle,
		pq.Array(&family.Children), &family.CreatedAt, &family.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return family, nil
}
