package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"mc-test-service/internal/config"
	"mc-test-service/internal/infra/csvlog"
)

// NewResetCmd truncates the answer log to header-only.
func NewResetCmd(configPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all recorded answers (irreversible)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all answers without --yes")
			}
			return runReset(cmd.Context(), *configPath)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion of all answers")
	return cmd
}

func runReset(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store := csvlog.New(cfg.Store.AnswersPath, config.TTLDuration(cfg.Store.LockTimeout, 5*time.Second))
	if err := store.ResetAll(ctx); err != nil {
		return err
	}
	log.Printf("answer log %s reset", cfg.Store.AnswersPath)
	return nil
}
