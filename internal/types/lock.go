package types

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock.
type LockScope string

const (
	// LockScopeSubscription serializes writers per subscription. The plan
	// change orchestrator takes this lock so only one change can be in
	// flight for a subscription at a time.
	LockScopeSubscription LockScope = "subscription"
)

const defaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock acquisition.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return defaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey builds a deterministic lock key from a scope and params.
// Tenant and environment ids from the context are folded in so locks never
// collide across tenants. Postgres hashes the string internally.
func GenerateLockKey(ctx context.Context, scope LockScope, params map[string]interface{}) string {
	merged := make(map[string]interface{}, len(params)+2)
	if tenantID := GetTenantID(ctx); tenantID != "" {
		merged["tenant_id"] = tenantID
	}
	if environmentID := GetEnvironmentID(ctx); environmentID != "" {
		merged["environment_id"] = environmentID
	}
	for k, v := range params {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, merged[k]))
	}
	return b.String()
}
