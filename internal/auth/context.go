package auth

import "context"

type payloadContextKey struct{}

// ContextWithPayload attaches the verified token payload to the context.
func ContextWithPayload(ctx context.Context, payload Payload) context.Context {
	return context.WithValue(ctx, payloadContextKey{}, &payload)
}

// PayloadFromContext extracts the verified token payload from the context.
func PayloadFromContext(ctx context.Context) (Payload, bool) {
	if ctx == nil {
		return Payload{}, false
	}
	v, ok := ctx.Value(payloadContextKey{}).(*Payload)
	if !ok || v == nil {
		return Payload{}, false
	}
	return *v, true
}

// UserIDFromContext returns the authenticated user id, if a verified payload
// was attached.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	p, ok := PayloadFromContext(ctx)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}
