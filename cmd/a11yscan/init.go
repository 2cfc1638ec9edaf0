package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/a11yscan.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = ".a11yscan"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new a11yscan configuration file",
		Long: `Initialize creates a new .a11yscan configuration file in the current directory.

The generated file includes:
- Default matrix axes (engines and viewports)
- Commented examples for probes, crawling, and checker APIs
- WebDriver endpoint settings per engine
- Documentation for all available options

Examples:
  # Create .a11yscan in current directory
  a11yscan init

  # Create config file at a specific path
  a11yscan init -o myconfig.yaml

  # Force overwrite existing file
  a11yscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/a11yscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write configuration file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure settings such as:")
	fmt.Println("  - Seed targets and matrix axes (engines, viewports)")
	fmt.Println("  - WebDriver endpoints per engine")
	fmt.Println("  - Probe selection and WAVE API credentials")

	return nil
}
