// Package cli implements the tinypal operator commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tinypal/internal/config"
	"tinypal/internal/upstream"
)

var (
	baseURLFlag string
	timeoutFlag time.Duration
	verboseFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "tinypal",
	Short:         "Query the TinyPal content API from the command line",
	Long:          "Fetches personalized cards and Tinu activations, normalized the same way the app server serves them.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Upstream base origin (default: $TINYPAL_API_BASE_URL)")
	RootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Per-request timeout (default: $TINYPAL_API_TIMEOUT_SECONDS)")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log upstream request events to stderr")
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		cfg = config.FromEnv()
	}
	if baseURLFlag != "" {
		cfg.APIBaseURL = baseURLFlag
	}
	if timeoutFlag > 0 {
		cfg.APITimeout = timeoutFlag
	}
	return cfg
}

func newClient(cfg config.Config) (*upstream.Client, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verboseFlag {
		logger = cfg.NewLogger(os.Stderr)
	}
	return upstream.NewClient(upstream.Config{
		BaseURL:  cfg.APIBaseURL,
		ModuleID: cfg.ModuleID,
		Timeout:  cfg.APITimeout,
		Logger:   logger,
	})
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
