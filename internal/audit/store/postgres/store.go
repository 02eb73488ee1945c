package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"edconnekt/internal/audit"
	"edconnekt/pkg/platform/sentinel"
	txcontext "edconnekt/pkg/platform/tx"
)

// Store persists audit records in the audit_logs table. Writes join the
// ambient transaction from pkg/platform/tx when one is present, which is how
// a mutation and its audit record commit atomically.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one record. There is deliberately no update or delete:
// the table is append-only.
func (s *Store) Append(ctx context.Context, record audit.Record) error {
	var payload []byte
	if record.Payload != nil {
		var err error
		payload, err = json.Marshal(record.Payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (
			id, service, entite, entite_id, operation,
			auteur_id, auteur_nom, motif, date_operation, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		record.Service,
		record.EntityType,
		record.EntityID,
		string(record.Operation),
		record.ActorSubjectID,
		nullable(record.ActorLabel),
		nullable(record.Motive),
		record.OccurredAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (audit.Record, error) {
	query := selectColumns + ` WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return audit.Record{}, fmt.Errorf("query audit record: %w", err)
	}
	return record, nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]audit.Record, error) {
	query := selectColumns + ` ORDER BY date_operation DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListByService(ctx context.Context, service string, limit, offset int) ([]audit.Record, error) {
	query := selectColumns + ` WHERE service = $1 ORDER BY date_operation DESC LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, query, service, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit records by service: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]audit.Record, error) {
	query := selectColumns + ` WHERE entite = $1 AND entite_id = $2 ORDER BY date_operation DESC LIMIT $3 OFFSET $4`
	rows, err := s.db.QueryContext(ctx, query, entityType, entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query audit records by entity: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

const selectColumns = `
	SELECT id, service, entite, entite_id, operation,
	       auteur_id, auteur_nom, motif, date_operation, payload
	FROM audit_logs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (audit.Record, error) {
	var (
		record    audit.Record
		operation string
		actor     sql.NullString
		motive    sql.NullString
		payload   []byte
	)
	err := row.Scan(
		&record.ID,
		&record.Service,
		&record.EntityType,
		&record.EntityID,
		&operation,
		&record.ActorSubjectID,
		&actor,
		&motive,
		&record.OccurredAt,
		&payload,
	)
	if err != nil {
		return audit.Record{}, err
	}
	record.Operation = audit.Operation(operation)
	record.ActorLabel = actor.String
	record.Motive = motive.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &record.Payload); err != nil {
			return audit.Record{}, fmt.Errorf("unmarshal audit payload: %w", err)
		}
	}
	return record, nil
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ audit.Sink   = (*Store)(nil)
	_ audit.Reader = (*Store)(nil)
)
