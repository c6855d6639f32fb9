package types

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle status shared by all persisted entities.
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

// Metadata is a free-form key-value bag attached to entities and events.
type Metadata map[string]string

// BaseModel carries the audit columns common to every entity.
type BaseModel struct {
	TenantID  string    `json:"tenant_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// GetDefaultBaseModel builds a BaseModel from the request context.
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	userID := GetUserID(ctx)
	return BaseModel{
		TenantID:  GetTenantID(ctx),
		Status:    StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
}

// Entity id prefixes, one per table.
const (
	UUID_PREFIX_SUBSCRIPTION       = "subs"
	UUID_PREFIX_PLAN               = "plan"
	UUID_PREFIX_ADDON              = "addon"
	UUID_PREFIX_INVOICE            = "inv"
	UUID_PREFIX_INVOICE_LINE_ITEM  = "inv_line"
	UUID_PREFIX_CREDIT             = "cred"
	UUID_PREFIX_DISCOUNT           = "disc"
	UUID_PREFIX_USAGE_RECORD       = "usage"
	UUID_PREFIX_PLAN_CHANGE        = "pcr"
	UUID_PREFIX_TAX_RATE           = "txrate"
	UUID_PREFIX_CHARGE             = "chrg"
	UUID_PREFIX_EVENT              = "evt"
)

// GenerateUUID returns a lowercase ULID. ULIDs are lexicographically
// sortable by creation time which keeps index pages warm.
func GenerateUUID() string {
	ms := ulid.Timestamp(time.Now().UTC())
	id, err := ulid.New(ms, ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}

// GenerateUUIDWithPrefix returns a prefixed ULID, e.g. "inv_01HV...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
