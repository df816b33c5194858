package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Admin struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFASecret is the per-email TOTP secret record. LastStep holds the most
// recently accepted time step; codes at or before it are refused as replays.
type MFASecret struct {
	Email     string
	Secret    string
	LastStep  *int64
	UpdatedAt time.Time
}

type ExtractedRecord struct {
	ID        uuid.UUID
	Sector    string
	Company   string
	Year      string
	Type      string
	Data      json.RawMessage
	PDFID     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StructureRow is the flat projection the browse tree is grouped from.
type StructureRow struct {
	Sector  string
	Company string
	Year    string
	Type    string
	ID      uuid.UUID
}

type AuditLog struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   *string
	IP         string
	UserAgent  string
}
