package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicudesk/labsync/internal/config"
)

var (
	cfg     = config.Default()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "labsync",
	Short: "Lab report ingestion for the ward's longitudinal patient charts",
	Long: "labsync pulls laboratory report attachments from a mailbox, extracts " +
		"their values with an LLM, matches them to admitted patients, and merges " +
		"accepted values into per-patient longitudinal charts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return nil
		}
		// Explicit flags win over file values.
		store, format := cfg.StorePath, cfg.LogFormat
		if err := cfg.LoadFromFile(cfgFile); err != nil {
			return err
		}
		pf := cmd.Root().PersistentFlags()
		if pf.Changed("store") {
			cfg.StorePath = store
		}
		if pf.Changed("log-format") {
			cfg.LogFormat = format
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", os.Getenv("LABSYNC_CONFIG"), "Path to YAML config file (or set LABSYNC_CONFIG)")
	pf.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Path to the sqlite document store")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
