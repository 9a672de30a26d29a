package types

import (
	"context"

	"github.com/samber/lo"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxUserRole      ContextKey = "ctx_user_role"
	CtxPermissions   ContextKey = "ctx_permissions"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetUserRole(ctx context.Context) UserRole {
	if role, ok := ctx.Value(CtxUserRole).(UserRole); ok {
		return role
	}
	return ""
}

func GetPermissions(ctx context.Context) []string {
	if perms, ok := ctx.Value(CtxPermissions).([]string); ok {
		return perms
	}
	return nil
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// HasPermission reports whether the requester carries the given permission
func HasPermission(ctx context.Context, permission string) bool {
	return lo.Contains(GetPermissions(ctx), permission)
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetUserRole sets the requester role in the context
func SetUserRole(ctx context.Context, role UserRole) context.Context {
	return context.WithValue(ctx, CtxUserRole, role)
}

// SetPermissions sets the requester permissions in the context
func SetPermissions(ctx context.Context, permissions []string) context.Context {
	return context.WithValue(ctx, CtxPermissions, permissions)
}
