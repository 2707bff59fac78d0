package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"umid/internal/umid/models"
	id "umid/pkg/domain"
	"umid/pkg/platform/sentinel"
	txcontext "umid/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

const selectUMID = `
	SELECT u.id, u.patient_id, u.is_active, u.version, u.data_version, u.sealed_secret,
	       u.security, u.created_at, u.updated_at, u.deactivated_at, d.data, d.created_at
	FROM umids u
	JOIN umid_data_versions d ON d.umid_id = u.id AND d.version = u.data_version`

// PostgresStore persists UMIDs in PostgreSQL. The partial unique index on
// (patient_id) WHERE is_active enforces one active UMID per patient.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed UMID store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNoActive(ctx context.Context, u *models.UMID) error {
	if u == nil {
		return sentinel.ErrInvalidState
	}
	security, err := json.Marshal(u.Security)
	if err != nil {
		return fmt.Errorf("marshal security settings: %w", err)
	}
	data, err := json.Marshal(u.LinkedData.Data)
	if err != nil {
		return fmt.Errorf("marshal linked data: %w", err)
	}

	return s.withTx(ctx, func(q txcontext.Querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO umids (id, patient_id, is_active, version, data_version, sealed_secret,
			                   security, created_at, updated_at, deactivated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.UUID(u.ID), uuid.UUID(u.PatientID), u.IsActive, u.Version, u.LinkedData.Version,
			u.Security.SealedSecret, security, u.CreatedAt, u.UpdatedAt, u.DeactivatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert umid: %w", err)
		}
		if err := insertVersion(ctx, q, u.ID, u.LinkedData.Version, data, u.LinkedData.RecordedAt); err != nil {
			return err
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, umidID id.UMIDID) (*models.UMID, error) {
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, selectUMID+` WHERE u.id = $1`, uuid.UUID(umidID))
	u, err := scanUMID(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find umid by id: %w", err)
	}
	return u, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// then writes the new state and any new linked-data version.
func (s *PostgresStore) Execute(ctx context.Context, umidID id.UMIDID, validate func(*models.UMID) error, mutate func(*models.UMID)) (*models.UMID, error) {
	var result *models.UMID
	err := s.withTx(ctx, func(q txcontext.Querier) error {
		row := q.QueryRowContext(ctx, selectUMID+` WHERE u.id = $1 FOR UPDATE OF u`, uuid.UUID(umidID))
		u, err := scanUMID(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock umid: %w", err)
		}
		prevDataVersion := u.LinkedData.Version

		if err := validate(u); err != nil {
			return err
		}
		mutate(u)

		if u.LinkedData.Version != prevDataVersion {
			data, err := json.Marshal(u.LinkedData.Data)
			if err != nil {
				return fmt.Errorf("marshal linked data: %w", err)
			}
			if err := insertVersion(ctx, q, u.ID, u.LinkedData.Version, data, u.LinkedData.RecordedAt); err != nil {
				return err
			}
		}

		security, err := json.Marshal(u.Security)
		if err != nil {
			return fmt.Errorf("marshal security settings: %w", err)
		}
		_, err = q.ExecContext(ctx, `
			UPDATE umids
			SET is_active = $2, version = $3, data_version = $4, security = $5,
			    updated_at = $6, deactivated_at = $7
			WHERE id = $1`,
			uuid.UUID(u.ID), u.IsActive, u.Version, u.LinkedData.Version, security,
			u.UpdatedAt, u.DeactivatedAt,
		)
		if err != nil {
			return fmt.Errorf("update umid: %w", err)
		}
		result = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.UMID, error) {
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx,
		selectUMID+` WHERE u.patient_id = $1 ORDER BY u.created_at, u.id`, uuid.UUID(patientID))
	if err != nil {
		return nil, fmt.Errorf("list umids by patient: %w", err)
	}
	return collectUMIDs(rows)
}

func (s *PostgresStore) Query(ctx context.Context, f models.Filter) ([]*models.UMID, error) {
	f = f.Normalized()
	var (
		where []string
		args  []any
	)
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("u.is_active = $%d", len(args)))
	}
	if f.PatientID != nil {
		args = append(args, uuid.UUID(*f.PatientID))
		where = append(where, fmt.Sprintf("u.patient_id = $%d", len(args)))
	}
	query := selectUMID
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY u.created_at, u.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query umids: %w", err)
	}
	out, err := collectUMIDs(rows)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.UMID{}
	}
	return out, nil
}

func (s *PostgresStore) ListDataVersions(ctx context.Context, umidID id.UMIDID) ([]models.LinkedMedicalData, error) {
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, `
		SELECT version, data, created_at FROM umid_data_versions
		WHERE umid_id = $1 ORDER BY version`, uuid.UUID(umidID))
	if err != nil {
		return nil, fmt.Errorf("list data versions: %w", err)
	}
	defer rows.Close()

	var out []models.LinkedMedicalData
	for rows.Next() {
		var (
			v   models.LinkedMedicalData
			raw []byte
		)
		if err := rows.Scan(&v.Version, &raw, &v.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan data version: %w", err)
		}
		if err := json.Unmarshal(raw, &v.Data); err != nil {
			return nil, fmt.Errorf("unmarshal linked data: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate data versions: %w", err)
	}
	if len(out) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return out, nil
}

// withTx reuses a transaction from ctx, or opens one for fn.
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

func insertVersion(ctx context.Context, q txcontext.Querier, umidID id.UMIDID, version int, data []byte, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO umid_data_versions (umid_id, version, data, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.UUID(umidID), version, data, at,
	)
	if err != nil {
		return fmt.Errorf("insert data version: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUMID(row rowScanner) (*models.UMID, error) {
	var (
		u             models.UMID
		umidID        uuid.UUID
		patientID     uuid.UUID
		sealed        []byte
		security      []byte
		data          []byte
		deactivatedAt sql.NullTime
	)
	err := row.Scan(
		&umidID, &patientID, &u.IsActive, &u.Version, &u.LinkedData.Version, &sealed,
		&security, &u.CreatedAt, &u.UpdatedAt, &deactivatedAt, &data, &u.LinkedData.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UMIDID(umidID)
	u.PatientID = id.PatientID(patientID)
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		u.DeactivatedAt = &t
	}
	if err := json.Unmarshal(security, &u.Security); err != nil {
		return nil, fmt.Errorf("unmarshal security settings: %w", err)
	}
	u.Security.SealedSecret = sealed
	if err := json.Unmarshal(data, &u.LinkedData.Data); err != nil {
		return nil, fmt.Errorf("unmarshal linked data: %w", err)
	}
	return &u, nil
}

func collectUMIDs(rows *sql.Rows) ([]*models.UMID, error) {
	defer rows.Close()
	var out []*models.UMID
	for rows.Next() {
		u, err := scanUMID(rows)
		if err != nil {
			return nil, fmt.Errorf("scan umid: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate umids: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
