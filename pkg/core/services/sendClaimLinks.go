package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/internal/config"
	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/db"
)

// SentLink records one claim link successfully mailed to a provider.
type SentLink struct {
	ProviderID   string
	ProviderName string
	Email        string
	ClaimURL     string
}

// FailedEmail records one provider whose claim link could not be sent.
type FailedEmail struct {
	ProviderID   string
	ProviderName string
	Email        string
	Error        string
}

// SendClaimLinksResult contains the per-provider outcome of a mailout.
type SendClaimLinksResult struct {
	Sent   []SentLink
	Failed []FailedEmail
}

// SendClaimLinks mints (or reuses) claim tokens for the given providers and
// mails each one their self-service link. Like every batch here it is
// best-effort: a bounced address or token failure is reported per provider
// and the mailout continues.
func SendClaimLinks(
	ctx context.Context,
	store ClaimTokenStore,
	emailer EmailSender,
	audit AuditRecorder,
	logger *zap.Logger,
	actor model.Actor,
	cfg *config.Config,
	scenarioID string,
	providerIDs []string,
) (*SendClaimLinksResult, error) {
	logger.Info("Starting sendClaimLinks",
		zap.String("scenario_id", scenarioID),
		zap.Int("providers", len(providerIDs)))

	scenario, err := store.GetScenario(ctx, scenarioID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, NotFoundf("scenario %s not found", scenarioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenario: %w", err)
	}

	tokens, err := GenerateClaimTokens(ctx, store, audit, logger, actor, scenarioID, providerIDs)
	if err != nil {
		return nil, err
	}

	result := &SendClaimLinksResult{}

	for _, failure := range tokens.Errors {
		result.Failed = append(result.Failed, FailedEmail{
			ProviderID: failure.Ref,
			Error:      failure.Message,
		})
	}

	for _, issued := range tokens.Tokens {
		provider, err := store.GetProvider(ctx, issued.ProviderID)
		if err != nil {
			result.Failed = append(result.Failed, FailedEmail{
				ProviderID: issued.ProviderID,
				Error:      fmt.Sprintf("failed to fetch provider: %v", err),
			})
			continue
		}

		if provider.Email == "" {
			result.Failed = append(result.Failed, FailedEmail{
				ProviderID:   provider.ID,
				ProviderName: provider.FullName(),
				Error:        "provider has no email address on file",
			})
			continue
		}

		claimURL := claimLinkURL(cfg.ClaimBaseURL, issued.Token.Token)
		subject := fmt.Sprintf("Shift sign-up for %s (%s to %s)",
			scenario.Name,
			scenario.StartDate.Format("Jan 2"),
			scenario.EndDate.Format("Jan 2"))
		body := fmt.Sprintf(
			"Hi %s\n\nShifts are available for %s between %s and %s.\nUse your personal link below to view and claim shifts:\n%s\n\nThe link works until %s. You can claim or release shifts as often as you need before then.\n\nThanks\nStaffing coordination\n",
			provider.FirstName,
			scenario.Name,
			scenario.StartDate.Format("2 January 2006"),
			scenario.EndDate.Format("2 January 2006"),
			claimURL,
			issued.Token.ExpiresAt.Format("2 January 2006"),
		)

		logger.Info("Sending claim link",
			zap.String("provider_id", provider.ID),
			zap.String("email", provider.Email))

		if err := emailer.SendEmail(provider.Email, subject, body); err != nil {
			logger.Warn("Failed to send claim link",
				zap.String("provider_id", provider.ID),
				zap.String("email", provider.Email),
				zap.Error(err))
			result.Failed = append(result.Failed, FailedEmail{
				ProviderID:   provider.ID,
				ProviderName: provider.FullName(),
				Email:        provider.Email,
				Error:        err.Error(),
			})
			continue
		}

		result.Sent = append(result.Sent, SentLink{
			ProviderID:   provider.ID,
			ProviderName: provider.FullName(),
			Email:        provider.Email,
			ClaimURL:     claimURL,
		})
	}

	logger.Info("Claim link mailout completed",
		zap.Int("sent", len(result.Sent)),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

func claimLinkURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/claim/" + token
}
