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

const personColumns = `handle, display_name, surname, given_name, nickname, gender, generation,
	birth_date, death_date, birth_year, death_year, is_living, patrilineal,
	occupation, employer, education, phone, email, zalo, hometown,
	current_address, biography, notes, families, parent_families, created_at, updated_at`

type personRepository struct {
	db *sql.DB
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *sql.DB) repository.PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) Create(ctx context.Context, person *models.Person) (*models.Person, error) {
	query := `
		INSERT INTO persons (` + personColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		RETURNING created_at, updated_at`

	now := time.Now()
	person.CreatedAt = now
	person.UpdatedAt = now
	if person.Gender == "" {
		person.Gender = models.GenderUnknown
	}
	person.SyncYears()

	err := r.db.QueryRowContext(ctx, query,
		person.Handle, person.DisplayName, person.Surname, person.GivenName,
		person.Nickname, person.Gender, person.Generation,
		person.BirthDate, person.DeathDate, person.BirthYear, person.DeathYear,
		person.IsLiving, person.Patrilineal, person.Occupation, person.Employer,
		person.Education, person.Phone, person.Email, person.Zalo,
		person.Hometown, person.CurrentAddress, person.Biography, person.Notes,
		pq.Array(person.Families), pq.Array(person.ParentFamilies),
		person.CreatedAt, person.UpdatedAt,
	).Scan(&person.CreatedAt, &person.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return person, nil
}

func (r *personRepository) GetByHandle(ctx context.Context, handle string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE handle = $1`
	person, err := scanPerson(r.db.QueryRowContext(ctx, query, handle))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

func (r *personRepository) List(ctx context.Context) ([]*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons ORDER BY handle`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var persons []*models.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}

func (r *personRepository) Handles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT handle FROM persons`)
	if err != nil {
		return nil, fmt.Errorf("failed to query person handles: %w", err)
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

// UpdateField writes one column by name. The column name is interpolated
// into the statement, so callers must pass only allow-listed identifiers;
// the value is always bound as a parameter.
func (r *personRepository) UpdateField(ctx context.Context, handle, column string, value any) error {
	query := fmt.Sprintf(`UPDATE persons SET %s = $2, updated_at = $3 WHERE handle = $1`, column)
	result, err := r.db.ExecContext(ctx, query, handle, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update person %s: %w", column, err)
	}
	return checkAffected(result)
}

func (r *personRepository) AddFamily(ctx context.Context, personHandle, familyHandle string) error {
	return r.appendHandle(ctx, "families", personHandle, familyHandle)
}

func (r *personRepository) RemoveFamily(ctx context.Context, personHandle, familyHandle string) error {
	return r.removeHandle(ctx, "families", personHandle, familyHandle)
}

func (r *personRepository) AddParentFamily(ctx context.Context, personHandle, familyHandle string) error {
	return r.appendHandle(ctx, "parent_families", personHandle, familyHandle)
}

func (r *personRepository) RemoveParentFamily(ctx context.Context, personHandle, familyHandle string) error {
	return r.removeHandle(ctx, "parent_families", personHandle, familyHandle)
}

// ReplaceParentFamily swaps one parent-family entry for another in a single
// statement, so no reader observes the person belonging to neither family.
// When the target entry is already present the source entry is removed
// instead, keeping parent_families duplicate-free.
func (r *personRepository) ReplaceParentFamily(ctx context.Context, personHandle, fromFamily, toFamily string) error {
	query := `
		UPDATE persons
		SET parent_families = CASE
		        WHEN $3 = ANY(parent_families) THEN array_remove(parent_families, $2)
		        ELSE array_replace(parent_families, $2, $3)
		    END,
		    updated_at = $4
		WHERE handle = $1`
	result, err := r.db.ExecContext(ctx, query, personHandle, fromFamily, toFamily, time.Now())
	if err != nil {
		return fmt.Errorf("failed to replace parent family: %w", err)
	}
	return checkAffected(result)
}

func (r *personRepository) Delete(ctx context.Context, handle string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return checkAffected(result)
}

// appendHandle adds familyHandle to the named array column if absent. The
// CASE keeps the update matching the row even when the entry already exists,
// so zero affected rows always means the person is missing.
func (r *personRepository) appendHandle(ctx context.Context, column, personHandle, familyHandle string) error {
	query := fmt.Sprintf(`
		UPDATE persons
		SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END,
		    updated_at = $3
		WHERE handle = $1`, column)
	result, err := r.db.ExecContext(ctx, query, personHandle, familyHandle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link person to family: %w", err)
	}
	return checkAffected(result)
}

func (r *personRepository) removeHandle(ctx context.Context, column, personHandle, familyHandle string) error {
	query := fmt.Sprintf(`
		UPDATE persons
		SET %[1]s = array_remove(%[1]s, $2), updated_at = $3
		WHERE handle = $1`, column)
	result, err := r.db.ExecContext(ctx, query, personHandle, familyHandle, time.Now())
	if err != nil {
		return fmt.Errorf("failed to unlink person from family: %w", err)
	}
	return checkAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	person := &models.Person{}
	err := row.Scan(
		&person.Handle, &person.DisplayName, &person.Surname, &person.GivenName,
		&person.Nickname, &person.Gender, &person.Generation,
		&person.BirthDate, &person.DeathDate, &person.BirthYear, &person.DeathYear,
		&person.IsLiving, &person.Patrilineal, &person.Occupation, &person.Employer,
		&person.Education, &person.Phone, &person.Email, &person.Zalo,
		&person.Hometown, &person.CurrentAddress, &person.Biography, &person.Notes,
		pq.Array(&person.Families), pq.Array(&person.ParentFamilies),
		&person.CreatedAt, &person.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return person, nil
}

// checkAffected maps a zero-row write to ErrNotFound so callers can tell
// "target missing" apart from a connectivity failure.
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
