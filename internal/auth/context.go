package auth

import "context"

type contextKey int

const (
	ctxProperty contextKey = iota
	ctxRole
	ctxSubject
)

// WithIdentity stores the caller's property, role and user id in ctx.
func WithIdentity(ctx context.Context, propertyID string, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, ctxProperty, propertyID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxSubject, subject)
}

// PropertyIDFromContext returns the active property id, or "".
func PropertyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	propertyID, _ := ctx.Value(ctxProperty).(string)
	return propertyID
}

// RoleFromContext returns the caller's role, or "". A plain string value is
// accepted as long as it normalizes to a known role.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	switch value := ctx.Value(ctxRole).(type) {
	case Role:
		return value
	case string:
		if role, ok := NormalizeRole(value); ok {
			return role
		}
	}
	return ""
}

// SubjectFromContext returns the caller's user id, or "".
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	subject, _ := ctx.Value(ctxSubject).(string)
	return subject
}
