package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/nao1215/exposcan/internal/log"
)

// NewRootCmd creates the root command for exposcan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exposcan",
		Short: "Find exposed sensitive files on websites",
		Long: `exposcan crawls websites and reports publicly reachable resources that
look sensitive, such as .env files, private keys, SQL dumps, backup archives
and .git directories.

Only the seed pages are parsed for links by default, and every discovered
URL is classified by its path before it is fetched. Sensitive URLs are
reported, never downloaded.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", string(applog.FormatText), "Log format: text or json")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
