package domain

import (
	"context"
	"time"
)

// AuditOperation names an analysis recorded in the audit trail.
type AuditOperation string

const (
	AuditSimilarityLocal    AuditOperation = "similarity.local"
	AuditSimilarityDetailed AuditOperation = "similarity.detailed"
	AuditAIDetect           AuditOperation = "ai.detect"
)

// Audit outcomes.
const (
	AuditOutcomeOK       = "ok"
	AuditOutcomeRejected = "rejected"
	AuditOutcomeFailed   = "failed"
)

// AuditEvent records one analysis. It carries sizes and verdicts, never the
// analysed text.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Operation AuditOperation    `json:"operation"`
	RequestID string            `json:"request_id,omitempty"`
	Outcome   string            `json:"outcome"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// AuditLogger persists audit events.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
}
