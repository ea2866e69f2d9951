package point

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists durable control points.
type Repository interface {
	// Save upserts one point value.
	Save(ctx context.Context, id string, v Value) error

	// LoadAll returns every persisted point.
	LoadAll(ctx context.Context) (map[string]Value, error)
}

// SQLiteRepository stores durable points in the points table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository backed by the given database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save upserts one point value.
func (r *SQLiteRepository) Save(ctx context.Context, id string, v Value) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO points (id, kind, bool_value, float_value, string_value, valid, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			bool_value = excluded.bool_value,
			float_value = excluded.float_value,
			string_value = excluded.string_value,
			valid = excluded.valid,
			updated_at = excluded.updated_at
	`,
		id,
		int(v.Kind),
		boolToInt(v.Bool),
		v.Float,
		v.Str,
		boolToInt(v.Valid),
		v.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving point %q: %w", id, err)
	}
	return nil
}

// LoadAll returns every persisted point.
func (r *SQLiteRepository) LoadAll(ctx context.Context) (map[string]Value, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, bool_value, float_value, string_value, valid, updated_at
		FROM points
	`)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	values := make(map[string]Value)
	for rows.Next() {
		var (
			id        string
			kind      int
			boolVal   int
			floatVal  float64
			stringVal string
			valid     int
			updatedAt string
		)
		if err := rows.Scan(&id, &kind, &boolVal, &floatVal, &stringVal, &valid, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning point row: %w", err)
		}

		v := Value{
			Kind:  Kind(kind),
			Bool:  boolVal != 0,
			Float: floatVal,
			Str:   stringVal,
			Valid: valid != 0,
		}
		v.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // Format is controlled
		values[id] = v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}
	return values, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
