package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/internal/config"
	"github.com/oakfield-health/strikeplan/pkg/clients/gmailclient"
	"github.com/oakfield-health/strikeplan/pkg/core/model"
	"github.com/oakfield-health/strikeplan/pkg/core/services"
	"github.com/oakfield-health/strikeplan/pkg/db"
	"github.com/oakfield-health/strikeplan/pkg/postgres"
	"github.com/oakfield-health/strikeplan/pkg/utils/logging"
)

const dateLayout = "2006-01-02"

// App holds the application dependencies
type App struct {
	cfg      *config.Config
	database *postgres.DB
	logger   *zap.Logger
	actor    model.Actor
	ctx      context.Context
}

var (
	env       string
	actorID   string
	actorName string
	verbose   bool
	app       *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strikeplan",
		Short: "Strikeplan CLI - Plan strike coverage staffing",
		Long:  `A CLI tool for planning hospital strike coverage: scenarios, position generation, provider matching and assignments.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "Acting admin's user id (required)")
	rootCmd.PersistentFlags().StringVar(&actorName, "actor-name", "", "Acting admin's display name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging on the console")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.MarkPersistentFlagRequired("actor")

	rootCmd.AddCommand(createScenarioCmd())
	rootCmd.AddCommand(generatePositionsCmd())
	rootCmd.AddCommand(findMatchesCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(confirmCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(generateTokensCmd())
	rootCmd.AddCommand(sendClaimLinksCmd())
	rootCmd.AddCommand(deleteScenarioCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// flagAuthorizer resolves the acting admin from the CLI flags. The CLI is an
// operator tool behind shell access, so scope checks accept any resolved
// actor.
type flagAuthorizer struct {
	id   string
	name string
}

func (a flagAuthorizer) Resolve(ctx context.Context) (model.Actor, error) {
	if a.id == "" {
		return model.Actor{}, fmt.Errorf("actor id is required")
	}
	name := a.name
	if name == "" {
		name = a.id
	}
	return model.Actor{ID: a.id, Name: name}, nil
}

func (a flagAuthorizer) RequireScope(ctx context.Context, actor model.Actor, scopeID string) (model.Actor, error) {
	return actor, nil
}

// initApp sets up logger, config, and the database connection
func initApp() error {
	var err error
	app = &App{ctx: context.Background()}

	var auth services.Authorizer = flagAuthorizer{id: actorID, name: actorName}
	app.actor, err = auth.Resolve(app.ctx)
	if err != nil {
		return err
	}

	app.logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	app.logger.Info("Loading configuration")
	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	app.logger.Info("Connecting to database")
	app.database, err = postgres.NewDB(app.ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := app.database.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Info("Database initialized successfully")

	return nil
}

// newGmailClient is initialized lazily: only the mailout command needs it,
// and constructing it may trigger an interactive OAuth flow.
func newGmailClient() (*gmailclient.Client, error) {
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}
	return gmailclient.NewClient(app.ctx, oauthCfg, env)
}

// parseReductions parses "JOBTYPE_ID=PERCENT" pairs.
func parseReductions(pairs []string) ([]db.JobTypeReduction, error) {
	var reductions []db.JobTypeReduction
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("reduction %q must be in job_type_id=percent form", pair)
		}
		percent, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("reduction percent in %q must be a number: %w", pair, err)
		}
		reductions = append(reductions, db.JobTypeReduction{
			JobTypeID:        parts[0],
			ReductionPercent: percent,
		})
	}
	return reductions, nil
}

// Command definitions

func createScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createScenario <name> <start_date> <end_date>",
		Short: "Create a draft strike scenario (dates as YYYY-MM-DD)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse(dateLayout, args[1])
			if err != nil {
				return fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
			}
			end, err := time.Parse(dateLayout, args[2])
			if err != nil {
				return fmt.Errorf("end_date must be YYYY-MM-DD: %w", err)
			}

			healthSystemID, _ := cmd.Flags().GetString("health-system")
			hospitalID, _ := cmd.Flags().GetString("hospital")
			reductionPairs, _ := cmd.Flags().GetStringArray("reduction")

			reductions, err := parseReductions(reductionPairs)
			if err != nil {
				return err
			}

			scenario, err := services.CreateScenario(app.ctx, app.database, app.database, app.logger, app.actor, services.CreateScenarioArgs{
				Name:           args[0],
				HealthSystemID: healthSystemID,
				HospitalID:     hospitalID,
				StartDate:      start,
				EndDate:        end,
				Reductions:     reductions,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nScenario created!\n\n")
			fmt.Printf("Scenario ID: %s\n", scenario.ID)
			fmt.Printf("Name:        %s\n", scenario.Name)
			fmt.Printf("Dates:       %s to %s\n", scenario.StartDate.Format(dateLayout), scenario.EndDate.Format(dateLayout))
			fmt.Printf("Status:      %s\n\n", scenario.Status)
			return nil
		},
	}

	cmd.Flags().String("health-system", "", "Health system id the scenario belongs to")
	cmd.Flags().String("hospital", "", "Limit the scenario to one hospital (default: whole health system)")
	cmd.Flags().StringArray("reduction", nil, "Job type reduction as job_type_id=percent (repeatable)")
	cmd.MarkFlagRequired("health-system")
	cmd.MarkFlagRequired("reduction")

	return cmd
}

func generatePositionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generatePositions <scenario_id>",
		Short: "Generate (or regenerate) the positions of a draft scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.GeneratePositions(app.ctx, app.database, app.database, app.logger, app.actor, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\nPositions generated!\n\n")
			fmt.Printf("Total positions:   %d\n", result.TotalPositions)
			fmt.Printf("Affected services: %d\n", result.AffectedServices)
			fmt.Printf("Strike days:       %d\n\n", result.TotalDays)
			return nil
		},
	}
}

func findMatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "findMatches <position_id>",
		Short: "Rank candidate providers for an open position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.FindMatches(app.ctx, app.database, app.logger, app.cfg.FellowJobTypeCode, args[0])
			if err != nil {
				return err
			}

			if !result.Eligible {
				fmt.Printf("\nPosition %s is not open for matching (status: %s)\n\n",
					result.Position.JobCode, result.Position.Status)
				return nil
			}

			fmt.Printf("\nCandidates for %s (%s %s):\n\n",
				result.Position.JobCode,
				result.Position.Date.Format(dateLayout),
				result.Position.ShiftType)

			if len(result.Matches) == 0 {
				fmt.Println("No eligible providers found.")
				fmt.Println()
				return nil
			}

			for i, m := range result.Matches {
				fmt.Printf("  %2d. %-30s score=%-4d tier=%-7s assignments=%d",
					i+1, m.Provider.FullName(), m.Score, m.Tier, m.AssignmentCount)
				if len(m.MissingSkillIDs) > 0 {
					fmt.Printf(" missing_skills=%d", len(m.MissingSkillIDs))
				}
				fmt.Println()
			}
			fmt.Println()
			return nil
		},
	}
}

func assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <position_id> <provider_id>",
		Short: "Assign a provider to an open position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignment, err := services.CreateAssignment(app.ctx, app.database, app.database, app.logger, app.actor, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("\nAssignment created!\n\n")
			fmt.Printf("Assignment ID: %s\n", assignment.ID)
			fmt.Printf("Status:        %s\n\n", assignment.Status)
			return nil
		},
	}
}

func confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <assignment_id>",
		Short: "Confirm an active assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.ConfirmAssignment(app.ctx, app.database, app.database, app.logger, app.actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("\nAssignment %s confirmed.\n\n", args[0])
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <assignment_id>",
		Short: "Cancel an assignment and reopen its position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			if err := services.CancelAssignment(app.ctx, app.database, app.database, app.logger, app.actor, args[0], reason); err != nil {
				return err
			}
			fmt.Printf("\nAssignment %s cancelled.\n\n", args[0])
			return nil
		},
	}

	cmd.Flags().String("reason", "", "Reason recorded against the cancellation")
	cmd.MarkFlagRequired("reason")

	return cmd
}

func generateTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generateTokens <scenario_id> <provider_id>...",
		Short: "Mint claim tokens for providers (idempotent per provider)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.GenerateClaimTokens(app.ctx, app.database, app.database, app.logger, app.actor, args[0], args[1:])
			if err != nil {
				return err
			}

			fmt.Printf("\nClaim tokens issued: %d\n\n", len(result.Tokens))
			for _, issued := range result.Tokens {
				marker := "minted"
				if issued.Reused {
					marker = "reused"
				}
				fmt.Printf("  %s  %s (%s, expires %s)\n",
					issued.ProviderID, issued.Token.Token, marker,
					issued.Token.ExpiresAt.Format(dateLayout))
			}
			if len(result.Errors) > 0 {
				fmt.Printf("\nFailed for %d providers:\n", len(result.Errors))
				for _, item := range result.Errors {
					fmt.Printf("  %s: %s\n", item.Ref, item.Message)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

func sendClaimLinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sendClaimLinks <scenario_id> <provider_id>...",
		Short: "Mint claim tokens and email each provider their claim link",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gmailClient, err := newGmailClient()
			if err != nil {
				return err
			}

			result, err := services.SendClaimLinks(app.ctx, app.database, gmailClient, app.database, app.logger, app.actor, app.cfg, args[0], args[1:])
			if err != nil {
				return err
			}

			fmt.Printf("\nClaim link mailout completed!\n\n")
			if len(result.Sent) > 0 {
				fmt.Printf("Links sent to %d providers:\n", len(result.Sent))
				for _, sent := range result.Sent {
					fmt.Printf("  %s (%s)\n", sent.ProviderName, sent.Email)
				}
				fmt.Println()
			}
			if len(result.Failed) > 0 {
				fmt.Printf("Failed to send %d emails:\n", len(result.Failed))
				for _, failed := range result.Failed {
					fmt.Printf("  %s (%s): %s\n", failed.ProviderName, failed.Email, failed.Error)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func deleteScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deleteScenario <scenario_id>",
		Short: "Delete a scenario with no active or confirmed assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteScenario(app.ctx, app.database, app.database, app.logger, app.actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("\nScenario %s deleted.\n\n", args[0])
			return nil
		},
	}
}
