package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oakfield-health/strikeplan/pkg/db"
)

const tokenColumns = `id, scenario_id, provider_id, token, expires_at, created_by, created_at`

func scanToken(row pgx.Row) (*db.ClaimToken, error) {
	var t db.ClaimToken
	err := row.Scan(&t.ID, &t.ScenarioID, &t.ProviderID, &t.Token, &t.ExpiresAt, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan claim token: %w", err)
	}
	return &t, nil
}

// GetClaimTokenByPair looks up the token issued for a scenario and provider.
func (s *queries) GetClaimTokenByPair(ctx context.Context, scenarioID, providerID string) (*db.ClaimToken, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+tokenColumns+` FROM claim_token
		WHERE scenario_id = $1 AND provider_id = $2
	`, scenarioID, providerID)
	return scanToken(row)
}

// GetClaimTokenByValue looks up a token by its opaque value.
func (s *queries) GetClaimTokenByValue(ctx context.Context, token string) (*db.ClaimToken, error) {
	row := s.q.QueryRow(ctx, `SELECT `+tokenColumns+` FROM claim_token WHERE token = $1`, token)
	return scanToken(row)
}

// InsertClaimToken inserts a newly minted token.
func (s *queries) InsertClaimToken(ctx context.Context, t *db.ClaimToken) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO claim_token (id, scenario_id, provider_id, token, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.ScenarioID, t.ProviderID, t.Token, t.ExpiresAt, t.CreatedBy, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert claim token: %w", err)
	}
	return nil
}

// DeleteScenarioClaimTokens removes every token of a scenario.
func (s *queries) DeleteScenarioClaimTokens(ctx context.Context, scenarioID string) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM claim_token WHERE scenario_id = $1`, scenarioID); err != nil {
		return fmt.Errorf("failed to delete claim tokens: %w", err)
	}
	return nil
}
