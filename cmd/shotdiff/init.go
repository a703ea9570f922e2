package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/shotdiff/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/shotdiff.yaml
var configTemplate embed.FS

const configTemplatePath = "templates/shotdiff.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .shotdiff configuration file",
		Long: `Init writes a commented .shotdiff configuration file with a reference and a
candidate environment, a page list and two devices.

Examples:
  # Create .shotdiff in the current directory
  shotdiff init

  # Create the file at a specific path
  shotdiff init -o ci/shotdiff.yaml

  # Overwrite an existing file
  shotdiff init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

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
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// the file may hold basic auth credentials of the environments
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit it to set:")
	fmt.Fprintln(out, "  - the base URL of each environment")
	fmt.Fprintln(out, "  - the pages to compare")
	fmt.Fprintln(out, "  - authentication headers or cookies for protected environments")
	fmt.Fprintln(out, "\nThen run 'shotdiff run'.")
	return nil
}
