package enumkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxPool is the subset of pgxpool.Pool the PostgreSQL source depends on.
type pgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	pgxSelectAll = `SELECT id, "key", "desc", data, syskey, category_id, is_category, group_id, created_at, updated_at FROM enumkeys ORDER BY id`

	pgxSelectVersion = `SELECT version FROM enumkey_versions ORDER BY id LIMIT 1`
)

// PgxSource reads enum rows straight through a pgx pool for deployments that
// keep the registry on PostgreSQL without GORM in the path.
type PgxSource struct {
	pool pgxPool
}

func NewPgxSource(pool pgxPool) *PgxSource {
	return &PgxSource{pool: pool}
}

// FetchAll returns every enumkeys row ordered by id.
func (s *PgxSource) FetchAll(ctx context.Context) ([]EnumKey, error) {
	rows, err := s.pool.Query(ctx, pgxSelectAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []EnumKey
	for rows.Next() {
		var row EnumKey
		if err := rows.Scan(&row.ID, &row.Key, &row.Desc, &row.Data, &row.SysKey,
			&row.CategoryID, &row.IsCategory, &row.GroupID,
			&row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		all = append(all, row)
	}
	return all, rows.Err()
}

// CurrentVersion reads the counter, zero when the row does not exist yet.
func (s *PgxSource) CurrentVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, pgxSelectVersion).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// InstallVersionTriggersPgx installs the PostgreSQL trigger set through a pgx
// pool, same as InstallVersionTriggers does on a GORM connection.
func InstallVersionTriggersPgx(ctx context.Context, pool pgxPool) error {
	for _, ddl := range []string{postgresBumpFunction, postgresDropTrigger, postgresCreateTrigger} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("install enumkeys version trigger: %w", err)
		}
	}
	return nil
}

// DropVersionTriggersPgx removes the PostgreSQL trigger, leaving the counter
// row in place.
func DropVersionTriggersPgx(ctx context.Context, pool pgxPool) error {
	if _, err := pool.Exec(ctx, postgresDropTrigger); err != nil {
		return fmt.Errorf("drop enumkeys version trigger: %w", err)
	}
	return nil
}
