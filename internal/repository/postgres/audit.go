package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

// Append writes one audit row. The table carries no update or delete paths.
func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	query := `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, entity_name, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType,
		entry.EntityID, entry.EntityName, metadata, entry.CreatedAt,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry, nil
}

func (r *auditRepository) List(ctx context.Context, filters repository.AuditFilters) ([]*models.AuditEntry, error) {
	query := `SELECT id, actor_id, action, entity_type, entity_id, entity_name, metadata, created_at
		FROM audit_log`
	args := []any{}
	argIdx := 1

	where := ""
	if filters.EntityType != "" {
		where = fmt.Sprintf(" WHERE entity_type = $%d", argIdx)
		args = append(args, filters.EntityType)
		argIdx++
	}
	if filters.EntityID != "" {
		if where == "" {
			where = fmt.Sprintf(" WHERE entity_id = $%d", argIdx)
		} else {
			where += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		}
		args = append(args, filters.EntityID)
		argIdx++
	}
	query += where + " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var metadata []byte
		if err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.EntityName, &metadata, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
