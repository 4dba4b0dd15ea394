package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"resourcegraph/internal/domain"
	"resourcegraph/internal/repository"
)

const resourceColumns = "id, kind, name, ordinal, data"

// resourceRow holds the columns of a resources query
type resourceRow struct {
	ID      string
	Kind    string
	Name    string
	Ordinal int
	Data    []byte
}

func (r *resourceRow) scanArgs() []any {
	return []any{&r.ID, &r.Kind, &r.Name, &r.Ordinal, &r.Data}
}

// toDomain decodes the stored resource. Indexed columns win over the JSON payload.
func (r *resourceRow) toDomain() (*domain.Resource, error) {
	res := &domain.Resource{}
	if err := json.Unmarshal(r.Data, res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource %s: %w", r.ID, err)
	}
	res.Name = domain.ResourceName{Kind: domain.ResourceKind(r.Kind), Name: r.Name}
	return res, nil
}

// LoadResources returns the stored snapshot in its original order
func (r *Repository) LoadResources(ctx context.Context) ([]*domain.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []*domain.Resource
	for rows.Next() {
		var row resourceRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		res, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}
	return resources, nil
}

// ReplaceResources swaps the stored snapshot for resources in one transaction.
// Resources with incomplete identity are not stored; duplicates keep the first occurrence.
func (r *Repository) ReplaceResources(ctx context.Context, resources []*domain.Resource, source string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resources`); err != nil {
		return fmt.Errorf("failed to clear resources: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resources (id, kind, name, ordinal, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for i, res := range resources {
		if res == nil {
			continue
		}
		id := res.ID()
		if id == "" {
			continue
		}
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal resource %s: %w", id, err)
		}
		result, err := stmt.ExecContext(ctx, id, string(res.Name.Kind), res.Name.Name, i, data)
		if err != nil {
			return fmt.Errorf("failed to insert resource %s: %w", id, classify(err))
		}
		if n, _ := result.RowsAffected(); n > 0 {
			stored++
		}
	}

	if err := setMeta(ctx, tx, "source", source); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, "count", fmt.Sprint(stored)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set snapshot meta %s: %w", key, err)
	}
	return nil
}

// SnapshotInfo describes the stored snapshot. LoadedAt is nil when nothing was stored.
func (r *Repository) SnapshotInfo(ctx context.Context) (repository.SnapshotInfo, error) {
	var (
		info    repository.SnapshotInfo
		source  sql.NullString
		updated sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `SELECT value, updated_at FROM snapshot_meta WHERE key = 'source'`).Scan(&source, &updated)
	if err != nil && err != sql.ErrNoRows {
		return info, fmt.Errorf("failed to query snapshot meta: %w", err)
	}
	info.Source = nullToString(source)
	info.LoadedAt = nullToTimePtr(updated)

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources`).Scan(&info.Count); err != nil {
		return info, fmt.Errorf("failed to count resources: %w", err)
	}
	return info, nil
}

var _ repository.Repository = (*Repository)(nil)
