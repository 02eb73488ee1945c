package classe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
	txcontext "edconnekt/pkg/platform/tx"
)

// PostgresStore persists classes. Mutations join the ambient transaction from
// pkg/platform/tx so they commit together with the audit record.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c *Classe) error {
	query := `
		INSERT INTO classes (id, nom, niveau, etablissement_id, enseignant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID, c.Nom, c.Niveau, c.EtablissementID, nullable(c.EnseignantID), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert classe: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Classe, error) {
	query := selectColumns + ` WHERE id = $1`
	c, err := scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query classe: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) Update(ctx context.Context, c *Classe) error {
	query := `
		UPDATE classes
		SET nom = $2, niveau = $3, enseignant_id = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID, c.Nom, c.Niveau, nullable(c.EnseignantID), c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update classe: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update classe: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Classe, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if filter.EtablissementID != uuid.Nil {
		query := selectColumns + ` WHERE etablissement_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = s.execer(ctx).QueryContext(ctx, query, filter.EtablissementID, limit, filter.Offset)
	} else {
		query := selectColumns + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = s.execer(ctx).QueryContext(ctx, query, limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var out []*Classe
	for rows.Next() {
		c, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan classe: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, nom, niveau, etablissement_id, enseignant_id, created_at, updated_at
	FROM classes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*Classe, error) {
	var (
		c          Classe
		enseignant sql.NullString
	)
	err := row.Scan(&c.ID, &c.Nom, &c.Niveau, &c.EtablissementID, &enseignant, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.EnseignantID = enseignant.String
	return &c, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
