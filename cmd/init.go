package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docsync/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default .docsync.yml",
	Long: `Write a .docsync.yml with every setting at its default value into dir,
or the current directory.

Examples:
  docsync init                                  # Defaults
  docsync init --command node --docs website/docs
  docsync init --force                          # Overwrite an existing file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initForce   bool
	initCommand string
	initDocsDir string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initCommand, "command", "", "Generator command (generate.command)")
	initCmd.Flags().StringVar(&initDocsDir, "docs", "", "Published docs directory (docs.dir)")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
		if err := os.MkdirAll(projectDir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", projectDir, err)
		}
	}

	cfg := config.Default()
	if initCommand != "" {
		cfg.Generate.Command = initCommand
	}
	if initDocsDir != "" {
		cfg.Docs.Dir = initDocsDir
	}

	result := config.ValidateConfigWithDetails(cfg)
	if result.HasErrors() {
		return fmt.Errorf("invalid configuration:\n%s", result.String())
	}

	target := filepath.Join(projectDir, config.FileName+".yml")
	if err := config.WriteFile(cfg, target, initForce); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Configuration saved to %s\n", target)
	if cfg.Generate.Command == "" {
		fmt.Fprintln(out, "Next: set generate.command, then run 'docsync sync --dry-run'")
	}
	return nil
}
