package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/exposcan/internal/config"
)

//go:embed templates/exposcan.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an exposcan policy file",
		Long: `Init writes a commented .exposcan.yaml policy file with the default
crawl limits, forbidden ports and sensitivity rules.

Examples:
  # Create .exposcan.yaml in the current directory
  exposcan init

  # Create the policy file at a specific path
  exposcan init -o policy.yaml

  # Overwrite an existing file
  exposcan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the policy file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing policy file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("policy file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/exposcan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read policy template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created policy file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to adjust:")
	fmt.Fprintln(out, "  - Crawl depth, timeout and concurrency")
	fmt.Fprintln(out, "  - Sensitive extensions and path patterns")
	fmt.Fprintln(out, "  - Report format and output directory")

	return nil
}
