package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theopenlane/urlscout/internal/scanner"
)

// exitInvalidTarget is the exit status when the URL cannot be parsed
const exitInvalidTarget = 2

// scanCmd runs a single scan and prints the report
var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "scan a url and print the report as json",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := runScan(cmd, args[0])
		if errors.Is(err, scanner.ErrInvalidTarget) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitInvalidTarget)
		}

		cobra.CheckErr(err)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("notify", false, "send slack notifications for malicious verdicts")
}

func runScan(cmd *cobra.Command, rawURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()

	manager, err := setupReputation(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setting up reputation: %w", err)
	}

	defer func() { _ = manager.Close() }()

	notify, _ := cmd.Flags().GetBool("notify")

	s, err := setupScanner(cfg, manager, notify)
	if err != nil {
		return fmt.Errorf("setting up scanner: %w", err)
	}

	report, scanErr := s.Scan(ctx, rawURL)

	// waits for a pending notification
	_ = s.Close()

	if scanErr != nil {
		return scanErr
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}
