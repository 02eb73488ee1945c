package etablissement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/pgerr"
	"edconnekt/pkg/platform/sentinel"
	txcontext "edconnekt/pkg/platform/tx"
)

// PostgresStore persists establishments. Mutations join the ambient
// transaction from pkg/platform/tx so they commit together with the audit
// record written in the same request.
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

func (s *PostgresStore) CreateIfEmailAvailable(ctx context.Context, e *Etablissement) error {
	query := `
		INSERT INTO etablissements (id, nom, email, telephone, adresse, status, group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, e.Nom, e.Email, e.Telephone, e.Adresse, string(e.Status), e.GroupID, e.CreatedAt, e.UpdatedAt,
	)
	if pgerr.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert etablissement: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Etablissement, error) {
	query := selectColumns + ` WHERE id = $1`
	e, err := scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query etablissement: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Update(ctx context.Context, e *Etablissement) error {
	query := `
		UPDATE etablissements
		SET nom = $2, email = $3, telephone = $4, adresse = $5, status = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, e.Nom, e.Email, e.Telephone, e.Adresse, string(e.Status), e.UpdatedAt,
	)
	if pgerr.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update etablissement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update etablissement: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Etablissement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Status != "" {
		query := selectColumns + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = s.execer(ctx).QueryContext(ctx, query, string(filter.Status), limit, filter.Offset)
	} else {
		query := selectColumns + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = s.execer(ctx).QueryContext(ctx, query, limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("query etablissements: %w", err)
	}
	defer rows.Close()

	var out []*Etablissement
	for rows.Next() {
		e, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan etablissement: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate etablissements: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, nom, email, telephone, adresse, status, group_id, created_at, updated_at
	FROM etablissements`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*Etablissement, error) {
	var (
		e      Etablissement
		status string
	)
	err := row.Scan(&e.ID, &e.Nom, &e.Email, &e.Telephone, &e.Adresse, &status, &e.GroupID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = Status(status)
	return &e, nil
}

var _ Store = (*PostgresStore)(nil)
