// Command tectonic loads plate reconstruction feature files, builds the
// layer graph described by a YAML configuration and resolves it at
// geological times.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logger     = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "tectonic",
	Short:         "Plate tectonic reconstruction layers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
			return fmt.Errorf("log level %q: %w", logLevel, err)
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tectonic.yaml", "layer graph configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.AddCommand(classifyCmd, resolveCmd, strainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tectonic:", err)
		os.Exit(1)
	}
}
