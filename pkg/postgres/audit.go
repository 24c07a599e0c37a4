package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

// Record appends one audit log row. Details are stored as jsonb so ad hoc
// queries can filter on them.
func (s *queries) Record(ctx context.Context, actor model.Actor, verb, entityType, entityID string, details map[string]string) error {
	var payload []byte
	if len(details) > 0 {
		var err error
		payload, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, actor_name, verb, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), actor.ID, actor.Name, verb, entityType, entityID, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
