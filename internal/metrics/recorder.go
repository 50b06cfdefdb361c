package metrics

import "time"

// DeclarationResult enumerates declaration outcomes for counters.
type DeclarationResult string

const (
	DeclarationAccepted  DeclarationResult = "accepted"
	DeclarationIgnored   DeclarationResult = "ignored"
	DeclarationRejected  DeclarationResult = "rejected"
	DeclarationDuplicate DeclarationResult = "duplicate"
)

// Recorder defines observability hooks for render and lookup metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveRenderDuration(d time.Duration)
	IncPagesRendered()
	IncSubstitutions(n int)
	IncLookupBatch(pages int)
	IncNegativeCacheHit()
	IncLimitExceeded()
	IncDeclarations(result DeclarationResult)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRenderDuration(time.Duration)    {}
func (NoopRecorder) IncPagesRendered()                      {}
func (NoopRecorder) IncSubstitutions(int)                   {}
func (NoopRecorder) IncLookupBatch(int)                     {}
func (NoopRecorder) IncNegativeCacheHit()                   {}
func (NoopRecorder) IncLimitExceeded()                      {}
func (NoopRecorder) IncDeclarations(DeclarationResult)      {}
