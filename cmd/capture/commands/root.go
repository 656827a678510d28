package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-invoice-capture/internal/config"
	"go-invoice-capture/internal/container"
	"go-invoice-capture/internal/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture invoices offline and sync them when a connection is available",
	Long: `capture drives the invoice capture pipeline from a terminal: scan an image,
review what was extracted, keep approved invoices in a local queue and push
them to the upload endpoint whenever it is reachable.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// keep stdout for command output
		logger.SetOutput(os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel(cfg.LogLevel)
	}
	return cfg, nil
}

func openClient(cmd *cobra.Command) (*container.ClientContainer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return container.NewClientContainer(cfg, cmd.OutOrStdout())
}
