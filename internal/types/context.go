package types

import "context"

type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxTenantID      ContextKey = "ctx_tenant_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxEnvironmentID ContextKey = "ctx_environment_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
)

// DefaultTenantID is used when no tenant is present on the context, e.g.
// in scripts and tests.
const DefaultTenantID = "00000000-0000-0000-0000-000000000000"

func GetRequestID(ctx context.Context) string {
	return ctxString(ctx, CtxRequestID)
}

func GetTenantID(ctx context.Context) string {
	if v := ctxString(ctx, CtxTenantID); v != "" {
		return v
	}
	return DefaultTenantID
}

func GetUserID(ctx context.Context) string {
	return ctxString(ctx, CtxUserID)
}

func GetEnvironmentID(ctx context.Context) string {
	return ctxString(ctx, CtxEnvironmentID)
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxRequestID, id)
}

func SetTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxTenantID, id)
}

func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxUserID, id)
}

func SetEnvironmentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxEnvironmentID, id)
}

func ctxString(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
