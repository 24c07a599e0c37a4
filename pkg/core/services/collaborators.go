package services

import (
	"context"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

// Authorizer is the authentication collaborator. It resolves the current
// caller and verifies scope access; services never perform ambient auth
// lookups and only receive already-resolved Actor values.
type Authorizer interface {
	Resolve(ctx context.Context) (model.Actor, error)
	RequireScope(ctx context.Context, actor model.Actor, scopeID string) (model.Actor, error)
}

// AuditRecorder is the audit collaborator. Persistence of the records is
// outside this core; services only append.
type AuditRecorder interface {
	Record(ctx context.Context, actor model.Actor, verb, entityType, entityID string, details map[string]string) error
}

// EmailSender sends one plain-text email. Satisfied by the gmail client.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}
