package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bilgisen/fairprice/internal/config"
	"github.com/bilgisen/fairprice/internal/logger"
)

var cfg *config.Config

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fairprice",
	Short: "fairprice - game review CMS",
	Long: `fairprice serves the fair price game review API and manages the review store.

Run without arguments to start the HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "hash-password" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		logger.Init(logger.Config{
			Level:  cfg.LogLevel,
			Output: cfg.LogOutput,
			Pretty: cfg.LogPretty,
		})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, publishCmd, importCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
