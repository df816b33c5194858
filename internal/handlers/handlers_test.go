package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/osa623/arxadmin/internal/rate"
	"github.com/osa623/arxadmin/internal/security"
	"github.com/osa623/arxadmin/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

type memStore struct {
	mu      sync.Mutex
	admins  map[string]*storage.Admin
	secrets map[string]*storage.MFASecret
	records map[uuid.UUID]*storage.ExtractedRecord
	byKey   map[string]uuid.UUID
	audits  []storage.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		admins:  map[string]*storage.Admin{},
		secrets: map[string]*storage.MFASecret{},
		records: map[uuid.UUID]*storage.ExtractedRecord{},
		byKey:   map[string]uuid.UUID{},
	}
}

func (m *memStore) CreateAdmin(ctx context.Context, email, passwordHash string) (*storage.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[email]; ok {
		return nil, storage.ErrDuplicateEmail
	}
	now := time.Now()
	admin := &storage.Admin{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	m.admins[email] = admin
	return admin, nil
}

func (m *memStore) GetAdminByEmail(ctx context.Context, email string) (*storage.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return admin, nil
}

func (m *memStore) GetAdminByID(ctx context.Context, id uuid.UUID) (*storage.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, admin := range m.admins {
		if admin.ID == id {
			return admin, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) UpsertMFASecret(ctx context.Context, email, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[email] = &storage.MFASecret{Email: email, Secret: secret, UpdatedAt: time.Now()}
	return nil
}

func (m *memStore) GetMFASecret(ctx context.Context, email string) (*storage.MFASecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.secrets[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *memStore) ConsumeCodeStep(ctx context.Context, email string, step int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.secrets[email]
	if !ok {
		return false, nil
	}
	if rec.LastStep != nil && *rec.LastStep >= step {
		return false, nil
	}
	rec.LastStep = &step
	return true, nil
}

func compositeKey(sector, company, year, recordType string) string {
	return sector + "|" + company + "|" + year + "|" + recordType
}

func (m *memStore) UpsertExtracted(ctx context.Context, sector, company, year, recordType string, data json.RawMessage, pdfID *string) (*storage.ExtractedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := compositeKey(sector, company, year, recordType)
	now := time.Now()
	if id, ok := m.byKey[key]; ok {
		rec := m.records[id]
		rec.Data = data
		rec.PDFID = pdfID
		rec.UpdatedAt = now
		return rec, nil
	}
	rec := &storage.ExtractedRecord{
		ID: uuid.New(), Sector: sector, Company: company, Year: year, Type: recordType,
		Data: data, PDFID: pdfID, CreatedAt: now, UpdatedAt: now,
	}
	m.records[rec.ID] = rec
	m.byKey[key] = rec.ID
	return rec, nil
}

func (m *memStore) GetExtracted(ctx context.Context, id uuid.UUID) (*storage.ExtractedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *memStore) UpdateExtractedData(ctx context.Context, id uuid.UUID, data json.RawMessage) (*storage.ExtractedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	rec.Data = data
	rec.UpdatedAt = time.Now()
	return rec, nil
}

func (m *memStore) DeleteExtracted(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.byKey, compositeKey(rec.Sector, rec.Company, rec.Year, rec.Type))
	delete(m.records, id)
	return nil
}

func (m *memStore) ListStructureRows(ctx context.Context) ([]storage.StructureRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]storage.StructureRow, 0, len(m.records))
	for _, rec := range m.records {
		rows = append(rows, storage.StructureRow{
			Sector: rec.Sector, Company: rec.Company, Year: rec.Year, Type: rec.Type, ID: rec.ID,
		})
	}
	return rows, nil
}

func (m *memStore) InsertAudit(ctx context.Context, log storage.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, log)
	return nil
}

func setupHandler(t *testing.T, store Store, now time.Time) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return &Handler{
		Store:       store,
		Logger:      logger,
		JWTSecret:   []byte("test-secret"),
		PasswordTTL: 240 * time.Hour,
		MFATTL:      12 * time.Hour,
		MFAIssuer:   "arx-admin",
		Argon2: security.Argon2Params{
			Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
		},
		RateLimiter: rate.NewMemory(100, time.Minute),
		Metrics:     NewMetrics(prometheus.NewRegistry()),
		Clock:       fakeClock{now: now},
	}
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}
