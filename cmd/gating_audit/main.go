// Command gating_audit validates gating configuration and evaluates gates for
// a single user against the configured database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/clearpath-backend/internal/app"
	"github.com/yungbote/clearpath-backend/internal/gating"
	"github.com/yungbote/clearpath-backend/internal/platform/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gating_audit",
		Short:         "Inspect module gating rules and verdicts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(validateCmd(), evaluateCmd())
	return cmd
}

func validateCmd() *cobra.Command {
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the gating config, then print module order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gating.LoadConfig(rulesPath)
			if err != nil {
				return err
			}
			return printOrder(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", os.Getenv("GATING_RULES_PATH"), "Gating YAML path (embedded config when empty)")
	return cmd
}

func printOrder(w io.Writer, cfg *gating.Config) error {
	for i, slug := range cfg.TopologicalOrder() {
		m, _ := cfg.Module(slug)
		marker := ""
		if cfg.IsSafetyGate(slug) {
			marker = " [safety gate]"
		}
		if _, err := fmt.Fprintf(w, "%2d. %s  %s%s\n", i+1, slug, m.Title, marker); err != nil {
			return err
		}
	}
	return nil
}

// verdict is one module's evaluation as printed by evaluate.
type verdict struct {
	Module        string                    `json:"module"`
	Gating        gating.GatingResult       `json:"gating"`
	Prerequisites gating.PrerequisiteResult `json:"prerequisites"`
	Instructions  []string                  `json:"instructions,omitempty"`
	Safety        gating.SafetyAdvice       `json:"safety"`
}

func evaluateCmd() *cobra.Command {
	var (
		userFlag   string
		moduleFlag string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate gates for a user against the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(strings.TrimSpace(userFlag))
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return err
			}
			defer log.Sync()

			engine, closeDB, err := app.OpenEngine(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()

			slugs := engine.Config().Slugs()
			if moduleFlag != "" {
				if _, ok := engine.Config().Module(moduleFlag); !ok {
					return fmt.Errorf("unknown module %q", moduleFlag)
				}
				slugs = []string{moduleFlag}
			}
			out, err := evaluate(cmd.Context(), engine, userID, slugs)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "User id (uuid)")
	cmd.Flags().StringVar(&moduleFlag, "module", "", "Only evaluate this module")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func evaluate(ctx context.Context, engine *gating.Engine, userID uuid.UUID, slugs []string) ([]verdict, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make([]verdict, 0, len(slugs))
	for _, slug := range slugs {
		g, err := engine.CheckModuleGating(ctx, slug, userID)
		if err != nil {
			return nil, err
		}
		p, err := engine.CheckModulePrerequisites(ctx, slug, userID)
		if err != nil {
			return nil, err
		}
		hints, err := engine.GetUnlockInstructions(ctx, slug, userID)
		if err != nil {
			return nil, err
		}
		s, err := engine.CanSafelyProceed(ctx, slug, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, verdict{Module: slug, Gating: g, Prerequisites: p, Instructions: hints, Safety: s})
	}
	return out, nil
}
