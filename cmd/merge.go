package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docsync/internal/merge"
)

var (
	mergeStrategy      string
	mergePreserveEmpty bool
	mergeDiff          bool
	mergeWrite         bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge OLD NEW",
	Short: "Merge a regenerated page into its published copy",
	Long: `Merge the hand-written sections of OLD into the regenerated page NEW.

The merged page is printed to stdout. A missing OLD is treated as empty.

Examples:
  docsync merge docs/button.mdx /tmp/button.mdx           # Print merged page
  docsync merge docs/button.mdx /tmp/button.mdx --diff    # Show what would change
  docsync merge docs/button.mdx /tmp/button.mdx --write   # Update docs/button.mdx
  docsync merge old.mdx new.mdx --strategy favor-generated`,
	Args: cobra.ExactArgs(2),
	RunE: runMergeCommand,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVar(&mergeStrategy, "strategy", "", "Conflict strategy (favor-preserved, favor-generated); defaults to merge.strategy")
	mergeCmd.Flags().BoolVar(&mergePreserveEmpty, "preserve-empty", false, "Keep preserved sections with a blank body")
	mergeCmd.Flags().BoolVar(&mergeDiff, "diff", false, "Print a unified diff instead of the merged page")
	mergeCmd.Flags().BoolVarP(&mergeWrite, "write", "w", false, "Write the merged page back to OLD")
}

func runMergeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := cfg.MergeOptions()
	if mergeStrategy != "" {
		if opts.ConflictStrategy, err = merge.ParseConflictStrategy(mergeStrategy); err != nil {
			return err
		}
	}
	if mergePreserveEmpty {
		opts.PreserveEmptyPreserved = true
	}

	oldPath, newPath := args[0], args[1]
	oldText, err := os.ReadFile(oldPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", oldPath, err)
	}
	newText, err := os.ReadFile(newPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", newPath, err)
	}

	result, err := merge.Merge(string(oldText), string(newText), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case mergeDiff:
		diff, err := merge.Diff(string(oldText), result.Content, oldPath, oldPath+" (merged)")
		if err != nil {
			return err
		}
		fmt.Fprint(out, diff)
	case mergeWrite:
		if !result.HasChanges {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s is up to date\n", oldPath)
			return nil
		}
		if err := os.WriteFile(oldPath, []byte(result.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", oldPath, err)
		}
	default:
		fmt.Fprint(out, result.Content)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%d preserved, %d generated section(s)\n",
		result.PreservedCount, result.UpdatedCount)
	return nil
}
