package ressource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
	txcontext "edconnekt/pkg/platform/tx"
)

// PostgresStore persists resources. Mutations join the ambient transaction
// from pkg/platform/tx.
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

func (s *PostgresStore) Create(ctx context.Context, r *Ressource) error {
	query := `
		INSERT INTO ressources (id, titre, description, categorie, chemin_fichier, etablissement_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		r.ID, r.Titre, nullable(r.Description), r.Categorie, nullable(r.CheminFichier), r.EtablissementID, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ressource: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Ressource, error) {
	query := selectColumns + ` WHERE id = $1`
	r, err := scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ressource: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Update(ctx context.Context, r *Ressource) error {
	query := `
		UPDATE ressources
		SET titre = $2, description = $3, categorie = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		r.ID, r.Titre, nullable(r.Description), r.Categorie, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update ressource: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ressource: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM ressources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ressource: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ressource: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Ressource, error) {
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
	if filter.Categorie != "" {
		args = append(args, filter.Categorie)
		query += fmt.Sprintf(" AND categorie = $%d", len(args))
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ressources: %w", err)
	}
	defer rows.Close()

	var out []*Ressource
	for rows.Next() {
		r, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ressource: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ressources: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Categories(ctx context.Context, etablissementID uuid.UUID) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if etablissementID != uuid.Nil {
		rows, err = s.execer(ctx).QueryContext(ctx,
			`SELECT DISTINCT categorie FROM ressources WHERE etablissement_id = $1 ORDER BY categorie`, etablissementID)
	} else {
		rows, err = s.execer(ctx).QueryContext(ctx,
			`SELECT DISTINCT categorie FROM ressources ORDER BY categorie`)
	}
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan categorie: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, titre, description, categorie, chemin_fichier, etablissement_id, created_at, updated_at
	FROM ressources`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*Ressource, error) {
	var (
		r           Ressource
		description sql.NullString
		chemin      sql.NullString
	)
	err := row.Scan(&r.ID, &r.Titre, &description, &r.Categorie, &chemin, &r.EtablissementID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Description = description.String
	r.CheminFichier = chemin.String
	return &r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
