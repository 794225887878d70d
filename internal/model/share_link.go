package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceTypeProject    ResourceType = "project"
	ResourceTypeFile       ResourceType = "file"
	ResourceTypeInvitation ResourceType = "invitation"
	ResourceTypeMeeting    ResourceType = "meeting"
)

// IsValid reports whether rt is one of the shareable resource types.
func (rt ResourceType) IsValid() bool {
	switch rt {
	case ResourceTypeProject, ResourceTypeFile, ResourceTypeInvitation, ResourceTypeMeeting:
		return true
	}
	return false
}

// StringSlice is a helper type for storing []string as JSONB in PostgreSQL.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("StringSlice.Scan: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

// Metadata is an opaque JSON blob passed through unchanged; the service
// attaches no meaning to it.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("Metadata.Scan: type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

// ShareLink grants an external (unauthenticated) holder of its token scoped
// access to one resource in one tenant. The token is generated once at
// creation and never mutated; only used_count and revoked_at change after.
type ShareLink struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Token        string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	ResourceType ResourceType `gorm:"type:varchar(32);not null" json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(128);not null" json:"resource_id"`
	TenantID     string       `gorm:"type:varchar(128);not null;index" json:"tenant_id"`
	Permissions  StringSlice  `gorm:"type:jsonb" json:"permissions"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	MaxUses      int          `gorm:"not null;default:1" json:"max_uses"`
	UsedCount    int          `gorm:"not null;default:0" json:"used_count"`
	SingleUse    bool         `gorm:"not null;default:false" json:"single_use"`
	PasswordHash string       `gorm:"type:varchar(256)" json:"-"`
	CreatedBy    uuid.UUID    `gorm:"type:uuid;not null" json:"created_by"`
	Metadata     Metadata     `gorm:"type:jsonb" json:"metadata,omitempty"`
	RevokedAt    *time.Time   `json:"revoked_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (ShareLink) TableName() string { return "share_links" }

// EffectiveCap resolves the usage cap: single-use pins it to 1 regardless of
// max_uses.
func (l *ShareLink) EffectiveCap() int {
	if l.SingleUse {
		return 1
	}
	return l.MaxUses
}

// PasswordProtected reports whether a password must accompany a claim.
func (l *ShareLink) PasswordProtected() bool {
	return l.PasswordHash != ""
}

type ShareLinkStatus string

const (
	StatusActive    ShareLinkStatus = "active"
	StatusRevoked   ShareLinkStatus = "revoked"
	StatusExpired   ShareLinkStatus = "expired"
	StatusExhausted ShareLinkStatus = "exhausted"
)

// Status derives the link's lifecycle state at the given instant. Expiry and
// exhaustion are computed from stored fields, never persisted as flags.
// Revocation wins over every other state.
func (l *ShareLink) Status(now time.Time) ShareLinkStatus {
	switch {
	case l.RevokedAt != nil:
		return StatusRevoked
	case l.ExpiresAt != nil && !now.Before(*l.ExpiresAt):
		return StatusExpired
	case l.UsedCount >= l.EffectiveCap():
		return StatusExhausted
	}
	return StatusActive
}

// ShareLinkView is the list projection returned to internal callers: the
// entity fields minus secrets, plus the derived status.
type ShareLinkView struct {
	ShareLink
	Status ShareLinkStatus `json:"status"`
}

// View builds the safe projection of l as of now.
func (l *ShareLink) View(now time.Time) ShareLinkView {
	v := ShareLinkView{ShareLink: *l, Status: l.Status(now)}
	v.PasswordHash = ""
	return v
}
