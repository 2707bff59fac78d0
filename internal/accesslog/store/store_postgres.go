package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"umid/internal/accesslog"
	"umid/internal/umid/models"
	id "umid/pkg/domain"
	txcontext "umid/pkg/platform/tx"
)

// EventAccessLogged is the outbox event type relayed to Kafka.
const EventAccessLogged = "umid.access_logged"

// PostgresStore writes access logs and their outbox row in one transaction.
// The access_logs table rejects UPDATE and DELETE with a trigger.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry accesslog.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal access log payload: %w", err)
	}
	scope := make([]string, len(entry.ScopeGranted))
	for i, f := range entry.ScopeGranted {
		scope[i] = string(f)
	}
	var reason sql.NullString
	if entry.FailureReason != "" {
		reason = sql.NullString{String: string(entry.FailureReason), Valid: true}
	}

	return s.withTx(ctx, func(q txcontext.Querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO access_logs (id, umid_id, accessor_id, accessor_role, access_time,
			                         verified, scope_granted, failure_reason, grant_basis, request_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.UUID(entry.ID), uuid.UUID(entry.UMIDID), uuid.UUID(entry.AccessorID),
			string(entry.AccessorRole), entry.AccessTime, entry.Verified, pq.Array(scope),
			reason, string(entry.GrantBasis), entry.RequestID,
		)
		if err != nil {
			return fmt.Errorf("insert access log: %w", err)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), "umid", entry.UMIDID.String(), EventAccessLogged, payload, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ListByUMID(ctx context.Context, umidID id.UMIDID, limit int) ([]accesslog.Entry, error) {
	query := `
		SELECT id, umid_id, accessor_id, accessor_role, access_time, verified,
		       scope_granted, failure_reason, grant_basis, request_id
		FROM access_logs
		WHERE umid_id = $1
		ORDER BY access_time DESC, id DESC
		LIMIT $2`
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, uuid.UUID(umidID), limit)
	if err != nil {
		return nil, fmt.Errorf("query access logs: %w", err)
	}
	defer rows.Close()

	out := []accesslog.Entry{}
	for rows.Next() {
		var (
			e          accesslog.Entry
			entryID    uuid.UUID
			umid       uuid.UUID
			accessorID uuid.UUID
			role       string
			scope      []string
			reason     sql.NullString
			basis      string
		)
		if err := rows.Scan(&entryID, &umid, &accessorID, &role, &e.AccessTime, &e.Verified,
			pq.Array(&scope), &reason, &basis, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		e.ID = id.AccessLogID(entryID)
		e.UMIDID = id.UMIDID(umid)
		e.AccessorID = id.UserID(accessorID)
		e.AccessorRole = id.Role(role)
		e.ScopeGranted = make([]models.Field, len(scope))
		for i, f := range scope {
			e.ScopeGranted[i] = models.Field(f)
		}
		if reason.Valid {
			e.FailureReason = accesslog.FailureReason(reason.String)
		}
		e.GrantBasis = accesslog.GrantBasis(basis)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access logs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListIDsByUMID(ctx context.Context, umidID id.UMIDID) ([]id.AccessLogID, error) {
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, `
		SELECT id FROM access_logs WHERE umid_id = $1 ORDER BY access_time, id`, uuid.UUID(umidID))
	if err != nil {
		return nil, fmt.Errorf("query access log ids: %w", err)
	}
	defer rows.Close()

	out := []id.AccessLogID{}
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan access log id: %w", err)
		}
		out = append(out, id.AccessLogID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access log ids: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(q txcontext.Querier) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
