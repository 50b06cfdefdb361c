// Package notify publishes render warnings (duplicate declarations, budget
// overruns) to NATS JetStream so wiki operators can watch for pages that need
// attention. Publication is best-effort: a failed publish logs and never
// affects the render.
package notify

import (
	"context"
	"time"
)

// WarningKind classifies a render warning.
type WarningKind string

const (
	WarningDuplicateDeclaration WarningKind = "duplicate_declaration"
	WarningLimitExceeded        WarningKind = "limit_exceeded"
	WarningInvalidDeclaration   WarningKind = "invalid_declaration"
)

// RenderWarning is one non-fatal problem surfaced during a render pass.
type RenderWarning struct {
	Kind      WarningKind `json:"kind"`
	Page      string      `json:"page"`
	RenderID  string      `json:"render_id,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher delivers render warnings to an external sink.
type Publisher interface {
	Publish(ctx context.Context, warning RenderWarning) error
	Close() error
}

// NoopPublisher is the default when notification is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, RenderWarning) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }
