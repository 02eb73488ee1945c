package eleve

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
	txcontext "edconnekt/pkg/platform/tx"
)

// PostgresStore persists students. Mutations join the ambient transaction
// from pkg/platform/tx so they commit together with the audit record.
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

func (s *PostgresStore) Create(ctx context.Context, e *Eleve) error {
	query := `
		INSERT INTO eleves (id, nom, prenom, date_naissance, etablissement_id, classe_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, e.Nom, e.Prenom, nullable(e.DateNaissance), e.EtablissementID, e.ClasseID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert eleve: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Eleve, error) {
	query := selectColumns + ` WHERE id = $1`
	e, err := scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query eleve: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Eleve) error {
	query := `
		UPDATE eleves
		SET nom = $2, prenom = $3, date_naissance = $4, classe_id = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, e.Nom, e.Prenom, nullable(e.DateNaissance), e.ClasseID, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update eleve: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update eleve: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Eleve, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := selectColumns + ` WHERE 1=1`
	args := []any{}
	if filter.EtablissementID != uuid.Nil {
		args = append(args, filter.EtablissementID)
		query += fmt.Sprintf(" AND etablissement_id = $%d", len(args))
	}
	if filter.ClasseID != uuid.Nil {
		args = append(args, filter.ClasseID)
		query += fmt.Sprintf(" AND classe_id = $%d", len(args))
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query eleves: %w", err)
	}
	defer rows.Close()

	var out []*Eleve
	for rows.Next() {
		e, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eleve: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eleves: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, nom, prenom, date_naissance, etablissement_id, classe_id, created_at, updated_at
	FROM eleves`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*Eleve, error) {
	var (
		e         Eleve
		naissance sql.NullString
		classeID  uuid.NullUUID
	)
	err := row.Scan(&e.ID, &e.Nom, &e.Prenom, &naissance, &e.EtablissementID, &classeID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.DateNaissance = naissance.String
	if classeID.Valid {
		id := classeID.UUID
		e.ClasseID = &id
	}
	return &e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
