package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theopenlane/urlscout/internal/reputation"
)

// reputationCmd groups the list management commands
var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "manage the reputation lists",
}

var reputationImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "upsert every entry of a yaml or json dataset into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := reputation.LoadDataset(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		return withManager(cmd, func(m *reputation.Manager) error {
			actor, _ := cmd.Flags().GetString("actor")

			written, err := m.Import(cmd.Context(), ds, actor)
			if err != nil {
				return err
			}

			log.Info().Int("written", written).Str("file", args[0]).Msg("reputation import complete")

			return nil
		})
	},
}

var reputationExportCmd = &cobra.Command{
	Use:   "export",
	Short: "print every list as yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd, func(m *reputation.Manager) error {
			ds, err := m.Export(cmd.Context())
			if err != nil {
				return err
			}

			data, err := reputation.EncodeDataset(ds)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		})
	},
}

var reputationHydrateCmd = &cobra.Command{
	Use:   "hydrate",
	Short: "download the configured blacklist feeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd, func(m *reputation.Manager) error {
			summary, err := m.Hydrate(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if encErr := enc.Encode(summary); encErr != nil {
				log.Error().Err(encErr).Msg("failed to print hydration summary")
			}

			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(reputationCmd)
	reputationCmd.AddCommand(reputationImportCmd, reputationExportCmd, reputationHydrateCmd)

	actor := os.Getenv("USER")
	reputationImportCmd.Flags().String("actor", actor, "name recorded in the change history")
}

// withManager opens the configured store for the duration of fn
func withManager(cmd *cobra.Command, fn func(*reputation.Manager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	manager, err := setupReputation(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	defer func() { _ = manager.Close() }()

	return fn(manager)
}
