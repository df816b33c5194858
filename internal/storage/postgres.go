package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateAdmin(ctx context.Context, email, passwordHash string) (*Admin, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO admins (email, password_hash, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING id, email, password_hash, created_at, updated_at
	`, email, passwordHash)

	var admin Admin
	if err := row.Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &admin, nil
}

func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admins
		WHERE email = $1
	`, email)

	var admin Admin
	if err := row.Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *Store) GetAdminByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM admins
		WHERE id = $1
	`, id)

	var admin Admin
	if err := row.Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpsertMFASecret replaces any prior secret for the email in one statement.
// The replay guard resets with the secret: old codes die immediately.
func (s *Store) UpsertMFASecret(ctx context.Context, email, secret string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mfa_secrets (email, secret, last_step, updated_at)
		VALUES ($1, $2, NULL, now())
		ON CONFLICT (email) DO UPDATE
		SET secret = EXCLUDED.secret, last_step = NULL, updated_at = now()
	`, email, secret)
	return err
}

func (s *Store) GetMFASecret(ctx context.Context, email string) (*MFASecret, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT email, secret, last_step, updated_at
		FROM mfa_secrets
		WHERE email = $1
	`, email)

	var rec MFASecret
	if err := row.Scan(&rec.Email, &rec.Secret, &rec.LastStep, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ConsumeCodeStep records the accepted TOTP time step. The guarded update
// is the atomicity point: a concurrent replay of the same code loses the
// race and gets zero rows back.
func (s *Store) ConsumeCodeStep(ctx context.Context, email string, step int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE mfa_secrets
		SET last_step = $2
		WHERE email = $1 AND (last_step IS NULL OR last_step < $2)
	`, email, step)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpsertExtracted(ctx context.Context, sector, company, year, recordType string, data json.RawMessage, pdfID *string) (*ExtractedRecord, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO extracted_records (sector, company, year, type, data, pdf_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (sector, company, year, type) DO UPDATE
		SET data = EXCLUDED.data, pdf_id = EXCLUDED.pdf_id, updated_at = now()
		RETURNING id, sector, company, year, type, data, pdf_id, created_at, updated_at
	`, sector, company, year, recordType, data, pdfID)

	return scanExtracted(row)
}

func (s *Store) GetExtracted(ctx context.Context, id uuid.UUID) (*ExtractedRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, sector, company, year, type, data, pdf_id, created_at, updated_at
		FROM extracted_records
		WHERE id = $1
	`, id)

	return scanExtracted(row)
}

func (s *Store) UpdateExtractedData(ctx context.Context, id uuid.UUID, data json.RawMessage) (*ExtractedRecord, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE extracted_records
		SET data = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, sector, company, year, type, data, pdf_id, created_at, updated_at
	`, id, data)

	return scanExtracted(row)
}

func (s *Store) DeleteExtracted(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM extracted_records
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListStructureRows feeds the browse tree. Sectors come back sorted; row
// order within a sector is whatever the store yields.
func (s *Store) ListStructureRows(ctx context.Context) ([]StructureRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sector, company, year, type, id
		FROM extracted_records
		ORDER BY sector ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StructureRow
	for rows.Next() {
		var r StructureRow
		if err := rows.Scan(&r.Sector, &r.Company, &r.Year, &r.Type, &r.ID); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *Store) InsertAudit(ctx context.Context, log AuditLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (actor, action, entity_type, entity_id, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, log.Actor, log.Action, log.EntityType, log.EntityID, log.IP, log.UserAgent)
	return err
}

func scanExtracted(row pgx.Row) (*ExtractedRecord, error) {
	var rec ExtractedRecord
	if err := row.Scan(&rec.ID, &rec.Sector, &rec.Company, &rec.Year, &rec.Type, &rec.Data, &rec.PDFID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
