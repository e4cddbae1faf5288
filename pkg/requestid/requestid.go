// Package requestid carries the correlation ID of a page request through
// context, so outbound API calls and emails can be tied back to it.
package requestid

import "context"

// Header carries the correlation ID in and out.
const Header = "X-Request-Id"

type contextKey struct{}

// FromContext returns the correlation ID stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// NewContext returns ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}
