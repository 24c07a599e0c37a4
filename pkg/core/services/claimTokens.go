package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// ItemError is one per-item failure in a batch operation. Batches are
// best-effort: callers get the successes plus a structured error per failed
// item, never all-or-nothing semantics.
type ItemError struct {
	Ref     string
	Kind    ErrorKind
	Message string
}

func itemError(ref string, err error) ItemError {
	kind := KindOf(err)
	if kind == "" {
		kind = KindConflict
	}
	return ItemError{Ref: ref, Kind: kind, Message: err.Error()}
}

// IssuedToken is one minted (or reused) claim token.
type IssuedToken struct {
	ProviderID string
	Token      db.ClaimToken
	Reused     bool
}

// GenerateClaimTokensResult contains the per-provider outcome of a token
// generation batch.
type GenerateClaimTokensResult struct {
	Tokens []IssuedToken
	Errors []ItemError
}

// ClaimTokenStore defines the operations needed to mint claim tokens.
type ClaimTokenStore interface {
	db.TxRunner
	GetScenario(ctx context.Context, id string) (*db.Scenario, error)
	GetProvider(ctx context.Context, id string) (*model.Provider, error)
}

// GenerateClaimTokens mints one claim token per requested provider for a
// scenario. Minting is idempotent per (scenario, provider): an existing
// token is returned instead of a duplicate. The batch is best-effort; a
// failing provider is reported and does not abort the rest.
func GenerateClaimTokens(
	ctx context.Context,
	store ClaimTokenStore,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	scenarioID string,
	providerIDs []string,
) (*GenerateClaimTokensResult, error) {
	logger.Debug("Starting generateClaimTokens",
		zap.String("scenario_id", scenarioID),
		zap.Int("providers", len(providerIDs)))

	scenario, err := store.GetScenario(ctx, scenarioID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, NotFoundf("scenario %s not found", scenarioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenario: %w", err)
	}
	if !scenario.Status.AcceptsClaims() || !scenario.IsActive {
		return nil, InvalidStatef("claim tokens can only be issued for Draft or Active scenarios (current: %s)", scenario.Status)
	}

	expiresAt := TokenExpiry(scenario.EndDate)
	result := &GenerateClaimTokensResult{}

	for _, providerID := range providerIDs {
		issued, err := issueToken(ctx, store, scenario, providerID, actor, expiresAt)
		if err != nil {
			logger.Warn("Failed to issue claim token",
				zap.String("provider_id", providerID),
				zap.Error(err))
			result.Errors = append(result.Errors, itemError(providerID, err))
			continue
		}
		result.Tokens = append(result.Tokens, *issued)
	}

	logger.Info("Claim token batch completed",
		zap.String("scenario_id", scenarioID),
		zap.Int("issued", len(result.Tokens)),
		zap.Int("failed", len(result.Errors)))

	if err := audit.Record(ctx, actor, "generate_claim_tokens", "scenario", scenarioID, map[string]string{
		"requested": fmt.Sprintf("%d", len(providerIDs)),
		"issued":    fmt.Sprintf("%d", len(result.Tokens)),
	}); err != nil {
		logger.Warn("Failed to record audit entry", zap.Error(err))
	}

	return result, nil
}

func issueToken(
	ctx context.Context,
	store ClaimTokenStore,
	scenario *db.Scenario,
	providerID string,
	actor model.Actor,
	expiresAt time.Time,
) (*IssuedToken, error) {
	provider, err := store.GetProvider(ctx, providerID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, NotFoundf("provider %s not found", providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider: %w", err)
	}
	if !provider.Active {
		return nil, InvalidStatef("provider %s is inactive", provider.FullName())
	}

	var issued *IssuedToken
	err = store.InTx(ctx, func(tx db.Tx) error {
		existing, err := tx.GetClaimTokenByPair(ctx, scenario.ID, providerID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to look up existing token: %w", err)
		}
		if existing != nil {
			issued = &IssuedToken{ProviderID: providerID, Token: *existing, Reused: true}
			return nil
		}

		token := &db.ClaimToken{
			ID:         uuid.NewString(),
			ScenarioID: scenario.ID,
			ProviderID: providerID,
			Token:      newTokenValue(),
			ExpiresAt:  expiresAt,
			CreatedBy:  actor.ID,
			CreatedAt:  time.Now(),
		}
		if err := tx.InsertClaimToken(ctx, token); err != nil {
			return fmt.Errorf("failed to insert claim token: %w", err)
		}
		issued = &IssuedToken{ProviderID: providerID, Token: *token}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// TokenExpiry pins a token's expiry to the end of the day after the
// scenario's last strike day, in local time.
func TokenExpiry(scenarioEnd time.Time) time.Time {
	day := scenarioEnd.AddDate(0, 0, 1)
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_000_000, time.Local)
}

// newTokenValue returns an opaque 64-character capability string.
func newTokenValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
