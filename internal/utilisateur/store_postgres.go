package utilisateur

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/pgerr"
	"edconnekt/pkg/platform/sentinel"
	txcontext "edconnekt/pkg/platform/tx"
)

// PostgresStore persists user accounts. Email uniqueness is enforced by a
// unique index so concurrent registrations race safely at the database.
// Mutations join the ambient transaction from pkg/platform/tx.
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

func (s *PostgresStore) CreateIfEmailAvailable(ctx context.Context, u *Utilisateur) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}

	query := `
		INSERT INTO utilisateurs (id, nom, prenom, email, roles, etablissement_id, actif, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		u.ID, u.Nom, u.Prenom, u.Email, roles, u.EtablissementID, u.Actif, u.CreatedAt, u.UpdatedAt,
	)
	if pgerr.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert utilisateur: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Utilisateur, error) {
	query := selectColumns + ` WHERE id = $1`
	u, err := scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query utilisateur: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) Update(ctx context.Context, u *Utilisateur) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}

	query := `
		UPDATE utilisateurs
		SET nom = $2, prenom = $3, roles = $4, actif = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		u.ID, u.Nom, u.Prenom, roles, u.Actif, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update utilisateur: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update utilisateur: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Utilisateur, error) {
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
	if filter.ActifOnly {
		query += " AND actif"
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query utilisateurs: %w", err)
	}
	defer rows.Close()

	var out []*Utilisateur
	for rows.Next() {
		u, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan utilisateur: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate utilisateurs: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, nom, prenom, email, roles, etablissement_id, actif, created_at, updated_at
	FROM utilisateurs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*Utilisateur, error) {
	var (
		u      Utilisateur
		roles  []byte
		etabID uuid.NullUUID
	)
	err := row.Scan(&u.ID, &u.Nom, &u.Prenom, &u.Email, &roles, &etabID, &u.Actif, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return nil, fmt.Errorf("unmarshal roles: %w", err)
		}
	}
	if etabID.Valid {
		id := etabID.UUID
		u.EtablissementID = &id
	}
	return &u, nil
}

var _ Store = (*PostgresStore)(nil)
