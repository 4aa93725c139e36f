package tracing

import (
	"context"
	"fmt"

	"github.com/bwise1/bookgroups/util/values"
)

// Context identifies a single inbound request across log lines and upstream calls.
type Context struct {
	RequestID     string `json:"request_id"`
	RequestSource string `json:"request_source"`
}

func (c Context) String() string {
	return fmt.Sprintf("request_id=%s source=%s", c.RequestID, c.RequestSource)
}

// WithContext stores tc in ctx so handlers and outbound clients can read it back.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, values.ContextTracingKey, tc)
}

// FromContext returns the tracing context stored by WithContext. The zero
// Context is returned for requests that bypassed RequestTracing.
func FromContext(ctx context.Context) Context {
	tc, _ := ctx.Value(values.ContextTracingKey).(Context)
	return tc
}
