package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/normanhq/norman/internal/core/domain"
)

type LawRepository struct {
	db *sql.DB
}

func NewLawRepository(db *sql.DB) *LawRepository {
	return &LawRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *LawRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS laws (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT,
	era TEXT,
	storage_path TEXT NOT NULL,
	article_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_laws_status ON laws(status);
CREATE INDEX IF NOT EXISTS idx_laws_category ON laws(category);
CREATE INDEX IF NOT EXISTS idx_laws_created_at ON laws(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *LawRepository) Create(ctx context.Context, law *domain.Law) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO laws (
	id, title, category, era, storage_path, article_count, chunk_count, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		law.ID, law.Title, law.Category, law.Era, law.StoragePath, law.ArticleCount, law.ChunkCount,
		string(law.Status), law.Error, law.CreatedAt, law.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert law: %w", err)
	}
	return nil
}

func (r *LawRepository) GetByID(ctx context.Context, id string) (*domain.Law, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, category, era, storage_path, article_count, chunk_count, status, error_message, created_at, updated_at
FROM laws
WHERE id = $1
`, id)

	var law domain.Law
	var status string

	err := row.Scan(
		&law.ID, &law.Title, &law.Category, &law.Era, &law.StoragePath,
		&law.ArticleCount, &law.ChunkCount, &status, &law.Error, &law.CreatedAt, &law.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrLawNotFound, "get law", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan law: %w", err)
	}
	law.Status = domain.LawStatus(status)
	return &law, nil
}

func (r *LawRepository) List(ctx context.Context, limit, offset int) ([]domain.Law, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, category, era, storage_path, article_count, chunk_count, status, error_message, created_at, updated_at
FROM laws
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list laws: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Law, 0, limit)
	for rows.Next() {
		var law domain.Law
		var status string
		if err := rows.Scan(
			&law.ID, &law.Title, &law.Category, &law.Era, &law.StoragePath,
			&law.ArticleCount, &law.ChunkCount, &status, &law.Error, &law.CreatedAt, &law.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan law row: %w", err)
		}
		law.Status = domain.LawStatus(status)
		out = append(out, law)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate law rows: %w", err)
	}
	return out, nil
}

func (r *LawRepository) UpdateStatus(ctx context.Context, id string, status domain.LawStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE laws
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update law status: %w", err)
	}
	return requireRowUpdated(res, "update law status", id)
}

func (r *LawRepository) SetCounts(ctx context.Context, id string, articles, chunks int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE laws
SET article_count = $2, chunk_count = $3, updated_at = $4
WHERE id = $1
`, id, articles, chunks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set law counts: %w", err)
	}
	return requireRowUpdated(res, "set law counts", id)
}

func requireRowUpdated(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrLawNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
